// Package compress provides the block codecs of the msz container.
//
// Every container block (a spectrum's structural XML fragment, its m/z array
// and its intensity array, plus the document prologue and epilogue) is
// compressed independently, so any spectrum can be decoded without touching
// its neighbours.
//
// Supported algorithms:
//   - None: blocks stored as-is
//   - Zstd: best ratio, the default for arrays and metadata (level 1-22, default 3)
//   - Zlib: RFC 1950, also used for mzML "zlib compression" arrays
//   - S2: fast, moderate ratio
//   - LZ4: fastest decompression, length-prefixed blocks
//
// The package defines three interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// Writers create codecs with CreateCodec so the configured level is honoured;
// readers use GetCodec, because decompression does not depend on the level:
//
//	codec, err := compress.CreateCodec(format.CompressionZstd, 9, "array")
//	if err != nil {
//	    return err
//	}
//	block, err := codec.Compress(packed)
//
// # Zstd backends
//
// The default zstd backend is the pure Go klauspost/compress implementation
// with pooled encoders (one pool per level) and decoders. Building with
// `-tags gozstd` and cgo enabled switches to the libzstd binding from
// valyala/gozstd. Both produce standard zstd frames and can read each other's
// output, although the compressed bytes may differ between backends.
//
// # Thread Safety
//
// All codecs are stateless values and safe for concurrent use.
package compress
