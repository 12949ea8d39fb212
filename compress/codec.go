package compress

import (
	"fmt"

	"github.com/arloliu/mscompress/format"
)

// Compressor compresses one container block.
//
// Blocks are either packed (possibly transformed) numeric arrays or the
// structural XML fragment of a spectrum. A block is compressed independently
// of every other block so the reader can decode any spectrum in isolation.
//
// Memory management:
//   - Returned slice is owned by the caller unless documented otherwise
//   - Input slice is not modified
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor.
//
// Implementations must be safe for concurrent use: the container reader
// decodes spectra from many goroutines with a single shared codec.
//
// Error conditions:
//   - Returns error if input data is corrupted or invalid
//   - Returns error if data was compressed with an incompatible algorithm
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// DefaultZstdLevel is the zstd level used when none is configured.
const DefaultZstdLevel = 3

// CreateCodec creates a Codec for the given compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, LZ4 or Zlib)
//   - level: Compression level, only meaningful for Zstd and Zlib (0 selects the default)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: Codec instance for the specified type
//   - error: Invalid compression type error
func CreateCodec(compressionType format.CompressionType, level int, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		if level == 0 {
			level = DefaultZstdLevel
		}

		return NewZstdCompressorLevel(level), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	case format.CompressionZlib:
		return NewZlibCompressorLevel(level), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
	format.CompressionZlib: NewZlibCompressor(),
}

// GetCodec retrieves a built-in Codec with default settings.
//
// Decompression never depends on the level, so readers always use GetCodec.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
