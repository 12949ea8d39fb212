package mzml

// Controlled-vocabulary accessions that describe a binary data array.
const (
	AccZlib          = "MS:1000574" // zlib compression
	AccNoCompression = "MS:1000576" // no compression
	AccFloat64       = "MS:1000523" // 64-bit float
	AccFloat32       = "MS:1000521" // 32-bit float
	AccMzArray       = "MS:1000514" // m/z array
	AccIntensity     = "MS:1000515" // intensity array
)

// numpressAccessions are array compressions this decoder cannot inflate.
var numpressAccessions = map[string]string{
	"MS:1002312": "MS-Numpress linear prediction compression",
	"MS:1002313": "MS-Numpress positive integer compression",
	"MS:1002314": "MS-Numpress short logged float compression",
	"MS:1002746": "MS-Numpress linear prediction compression followed by zlib compression",
	"MS:1002747": "MS-Numpress positive integer compression followed by zlib compression",
	"MS:1002748": "MS-Numpress short logged float compression followed by zlib compression",
}

// ParamGroups maps a referenceableParamGroup id to the accessions it declares.
type ParamGroups map[string][]string
