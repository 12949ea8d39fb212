package compress

// ZstdCompressor provides Zstandard compression for container blocks.
//
// Zstd is the default for both arrays and structural metadata: spectra are
// written once and read many times, so the compression ratio matters more
// than encode speed. The level follows the zstd command line scale (1-22).
type ZstdCompressor struct {
	level int
}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor at DefaultZstdLevel.
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{level: DefaultZstdLevel}
}

// NewZstdCompressorLevel creates a Zstd compressor with the given level.
// Levels below 1 select DefaultZstdLevel.
func NewZstdCompressorLevel(level int) ZstdCompressor {
	if level < 1 {
		level = DefaultZstdLevel
	}

	return ZstdCompressor{level: level}
}

// Level returns the configured compression level.
func (c ZstdCompressor) Level() int {
	return c.level
}
