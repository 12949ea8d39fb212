package section

import (
	"math"

	"github.com/arloliu/mscompress/endian"
)

const (
	// MagicTag identifies an msz container.
	MagicTag uint32 = 0x035F51B5
	// FooterMarker terminates a finalized container ("MSZ\x00END\x1a").
	FooterMarker uint64 = 0x1A444E45005A534D

	VersionMajor uint8 = 1
	VersionMinor uint8 = 0

	// FlagLossy is set when any array role uses a lossy transform.
	FlagLossy uint16 = 0x0001
)

// offsets and section sizes in the container file
const (
	HeaderSize           = 64 // fixed header size in bytes
	DataFormatOffset     = 8  // byte offset of the DataFormat inside the header
	DataFormatSize       = 24 // serialized DataFormat size in bytes
	BlockPrefixSize      = 8  // length + checksum prefix of every block
	DivisionPreambleSize = 48 // fixed part of the Division
	DivisionEntrySize    = 56 // fixed Division entry size in bytes
	FooterSize           = 16 // fixed footer size in bytes

	MaxBlockPayload = math.MaxUint32 // largest payload a block prefix can describe
	MaxNameLength   = math.MaxUint16 // longest namespace or source name
)

var engine = endian.GetLittleEndianEngine()
