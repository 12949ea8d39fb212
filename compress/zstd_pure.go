//go:build !(gozstd && cgo)

package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse.
// The klauspost/compress/zstd decoder operates without allocations after warmup.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// zstdEncoderPools holds one encoder pool per encoder level.
var zstdEncoderPools sync.Map // map[zstd.EncoderLevel]*sync.Pool

func zstdEncoderPool(level int) *sync.Pool {
	encLevel := zstd.EncoderLevelFromZstd(level)
	if p, ok := zstdEncoderPools.Load(encLevel); ok {
		return p.(*sync.Pool) //nolint: forcetypeassert
	}

	p := &sync.Pool{
		New: func() any {
			encoder, err := zstd.NewWriter(nil,
				zstd.WithEncoderLevel(encLevel),
				zstd.WithEncoderCRC(false),
				zstd.WithEncoderConcurrency(1),
			)
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
			}

			return encoder
		},
	}
	actual, _ := zstdEncoderPools.LoadOrStore(encLevel, p)

	return actual.(*sync.Pool) //nolint: forcetypeassert
}

// Compress compresses the input data using a pooled encoder.
//
// EncodeAll is deterministic for a given level, which keeps containers
// byte-identical across runs.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	pool := zstdEncoderPool(c.level)
	encoder, _ := pool.Get().(*zstd.Encoder)
	defer pool.Put(encoder)

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses Zstd-compressed data using a pooled decoder.
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return decompressed, nil
}
