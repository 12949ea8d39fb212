package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// maxLZ4BlockSize bounds the decoded size announced by a block prefix.
const maxLZ4BlockSize = 1 << 31

// LZ4Compressor provides LZ4 block compression.
//
// A raw LZ4 block does not record its decoded size, so each compressed block
// starts with the uvarint length of the original data. This lets the reader
// allocate the exact output buffer instead of guessing.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress compresses the input data using a pooled lz4.Compressor.
//
// Parameters:
//   - data: Input data to compress
//
// Returns:
//   - []byte: Length-prefixed compressed block (nil if input is empty)
//   - error: Compression error if any
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	bound := lz4.CompressBlockBound(len(data))
	dst := make([]byte, binary.MaxVarintLen64+bound)
	prefix := binary.PutUvarint(dst, uint64(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[prefix:])
	if err != nil {
		return nil, err
	}

	return dst[:prefix+n], nil
}

// Decompress decompresses a length-prefixed LZ4 block.
//
// Returns an error if the prefix is missing, announces an unreasonable size,
// or does not match the decoded length.
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	size, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, errors.New("lz4 decompression failed: invalid length prefix")
	}
	if size > maxLZ4BlockSize {
		return nil, fmt.Errorf("lz4 decompression failed: block size %d exceeds limit", size)
	}

	buf := make([]byte, size)
	got, err := lz4.UncompressBlock(data[n:], buf)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	if uint64(got) != size {
		return nil, fmt.Errorf("lz4 decompression failed: decoded %d bytes, expected %d", got, size)
	}

	return buf, nil
}
