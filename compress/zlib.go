package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// ZlibCompressor provides zlib (RFC 1950) compression.
//
// It serves two roles: a container block codec, and the inflate/deflate step
// of mzML binary arrays declared "zlib compression".
type ZlibCompressor struct {
	level int
}

var _ Codec = (*ZlibCompressor)(nil)

var zlibWriterPools sync.Map // map[int]*sync.Pool

// NewZlibCompressor creates a zlib compressor at zlib.DefaultCompression.
func NewZlibCompressor() ZlibCompressor {
	return ZlibCompressor{level: zlib.DefaultCompression}
}

// NewZlibCompressorLevel creates a zlib compressor with the given level.
// Zero selects zlib.DefaultCompression.
func NewZlibCompressorLevel(level int) ZlibCompressor {
	if level == 0 || level < zlib.HuffmanOnly || level > zlib.BestCompression {
		level = zlib.DefaultCompression
	}

	return ZlibCompressor{level: level}
}

func zlibWriterPool(level int) *sync.Pool {
	if p, ok := zlibWriterPools.Load(level); ok {
		return p.(*sync.Pool) //nolint: forcetypeassert
	}

	p := &sync.Pool{
		New: func() any {
			w, err := zlib.NewWriterLevel(io.Discard, level)
			if err != nil {
				panic(fmt.Sprintf("failed to create zlib writer for pool: %v", err))
			}

			return w
		},
	}
	actual, _ := zlibWriterPools.LoadOrStore(level, p)

	return actual.(*sync.Pool) //nolint: forcetypeassert
}

// Compress deflates data into a complete zlib stream.
//
// Unlike the other block codecs an empty input still produces a valid
// stream, since mzML writers emit one for zero-length arrays.
func (c ZlibCompressor) Compress(data []byte) ([]byte, error) {
	pool := zlibWriterPool(c.level)
	w, _ := pool.Get().(*zlib.Writer)
	defer pool.Put(w)

	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream.
func (c ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}

	return out, nil
}
