package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(1024)

	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 1024, cap(bb.B))
}

func TestByteBuffer_Writes(t *testing.T) {
	bb := NewByteBuffer(8)

	n, err := bb.Write([]byte("<binary>"))
	require.NoError(t, err)
	require.Equal(t, 8, n)

	require.NoError(t, bb.WriteByte('x'))

	n, err = bb.WriteString("</binary>")
	require.NoError(t, err)
	require.Equal(t, 9, n)

	require.Equal(t, "<binary>x</binary>", string(bb.Bytes()))

	bb.Truncate(8)
	require.Equal(t, "<binary>", string(bb.Bytes()))
	require.Panics(t, func() { bb.Truncate(100) })

	var out bytes.Buffer
	written, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(8), written)
	require.Equal(t, "<binary>", out.String())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("SufficientCapacity", func(t *testing.T) {
		bb := NewByteBuffer(100)
		bb.Grow(50)
		require.Equal(t, 100, cap(bb.B))
	})

	t.Run("SmallBuffer", func(t *testing.T) {
		bb := NewByteBuffer(10)
		bb.B = append(bb.B, "abc"...)
		bb.Grow(100)
		require.GreaterOrEqual(t, cap(bb.B), 3+ScratchBufferDefaultSize)
		require.Equal(t, "abc", string(bb.B))
	})

	t.Run("LargeBuffer", func(t *testing.T) {
		size := 8 * ScratchBufferDefaultSize
		bb := NewByteBuffer(size)
		bb.B = bb.B[:size]
		bb.Grow(1)
		require.Equal(t, size+size/4, cap(bb.B))
	})

	t.Run("MoreThanDefault", func(t *testing.T) {
		bb := NewByteBuffer(0)
		bb.Grow(2 * ScratchBufferDefaultSize)
		require.GreaterOrEqual(t, cap(bb.B), 2*ScratchBufferDefaultSize)
	})
}

func TestByteBufferPool(t *testing.T) {
	t.Run("ResetsOnPut", func(t *testing.T) {
		p := NewByteBufferPool(64, 0)
		bb := p.Get()
		bb.B = append(bb.B, "data"...)
		p.Put(bb)

		again := p.Get()
		require.Equal(t, 0, again.Len())
	})

	t.Run("NilPut", func(t *testing.T) {
		p := NewByteBufferPool(64, 0)
		require.NotPanics(t, func() { p.Put(nil) })
	})

	t.Run("MaxThresholdDiscard", func(t *testing.T) {
		p := NewByteBufferPool(16, 32)
		bb := p.Get()
		bb.Grow(1024)
		p.Put(bb)

		// a discarded buffer is never handed out again
		for range 10 {
			got := p.Get()
			require.LessOrEqual(t, cap(got.B), 32)
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for range 100 {
					bb := GetBlockBuffer()
					bb.B = append(bb.B, byte(i))
					require.Equal(t, 1, bb.Len())
					PutBlockBuffer(bb)
				}
			}(i)
		}
		wg.Wait()
	})
}

func TestArena(t *testing.T) {
	a := NewArena()
	first := a.Buffer()
	second := a.Buffer()
	first.B = append(first.B, "mz"...)
	second.B = append(second.B, "intensity"...)

	require.Equal(t, 2, a.Len())
	require.NotSame(t, first, second)

	a.Release()
	require.Equal(t, 0, a.Len())
	require.Equal(t, 0, first.Len())
	require.Equal(t, 0, second.Len())

	// reusable after release
	require.NotNil(t, a.Buffer())
	require.Equal(t, 1, a.Len())
	a.Release()
}
