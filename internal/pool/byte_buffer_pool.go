package pool

import (
	"io"
	"sync"
)

// Scratch buffer sizing. A spectrum's structural fragment is a few KiB; its
// base64 arrays range from bytes to several MiB for profile-mode scans.
const (
	ScratchBufferDefaultSize  = 1024 * 64        // 64KiB
	ScratchBufferMaxThreshold = 1024 * 1024 * 16 // 16MiB
	BlockBufferDefaultSize    = 1024 * 16        // 16KiB
	BlockBufferMaxThreshold   = 1024 * 1024 * 4  // 4MiB
)

// ByteBuffer is a growable byte slice that can be returned to a pool.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Truncate discards all but the first n bytes.
// Panics if n is negative or greater than the length.
func (bb *ByteBuffer) Truncate(n int) {
	if n < 0 || n > len(bb.B) {
		panic("Truncate: invalid length")
	}
	bb.B = bb.B[:n]
}

// WriteByte appends a single byte.
func (bb *ByteBuffer) WriteByte(c byte) error {
	bb.B = append(bb.B, c)
	return nil
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteString appends s to the buffer.
func (bb *ByteBuffer) WriteString(s string) (int, error) {
	bb.B = append(bb.B, s...)
	return len(s), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// Grow ensures the buffer can hold n more bytes without reallocating.
//
// Small buffers grow by ScratchBufferDefaultSize, larger ones by 25% of their
// capacity, and always by at least n.
func (bb *ByteBuffer) Grow(n int) {
	if cap(bb.B)-len(bb.B) >= n {
		return
	}

	growBy := ScratchBufferDefaultSize
	if cap(bb.B) > 4*ScratchBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < n {
		growBy = n
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// ByteBufferPool is a pool of ByteBuffers backed by sync.Pool.
//
// Buffers that grew beyond maxThreshold are dropped on Put so that one huge
// spectrum does not pin its memory for the rest of the run.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	scratchPool = NewByteBufferPool(ScratchBufferDefaultSize, ScratchBufferMaxThreshold)
	blockPool   = NewByteBufferPool(BlockBufferDefaultSize, BlockBufferMaxThreshold)
)

// GetScratch retrieves a per-spectrum scratch buffer.
func GetScratch() *ByteBuffer {
	return scratchPool.Get()
}

// PutScratch returns a scratch buffer at the spectrum boundary.
func PutScratch(bb *ByteBuffer) {
	scratchPool.Put(bb)
}

// GetBlockBuffer retrieves a buffer for assembling one container block.
func GetBlockBuffer() *ByteBuffer {
	return blockPool.Get()
}

// PutBlockBuffer returns a block buffer to the pool.
func PutBlockBuffer(bb *ByteBuffer) {
	blockPool.Put(bb)
}
