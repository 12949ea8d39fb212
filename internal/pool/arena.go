package pool

// Arena groups the scratch buffers owned by one in-flight spectrum.
//
// The decoder fills an arena while it parses a spectrum and hands it to a
// worker together with the spectrum; the worker releases it once the encoded
// blocks are produced. Release returns every buffer at once, so no buffer
// outlives its spectrum.
type Arena struct {
	bufs []*ByteBuffer
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{bufs: make([]*ByteBuffer, 0, 4)}
}

// Buffer returns a fresh scratch buffer owned by the arena.
func (a *Arena) Buffer() *ByteBuffer {
	bb := GetScratch()
	a.bufs = append(a.bufs, bb)

	return bb
}

// Release returns all buffers to the scratch pool. The arena can be reused
// afterwards. Slices obtained from its buffers must not be used after Release.
func (a *Arena) Release() {
	for i, bb := range a.bufs {
		PutScratch(bb)
		a.bufs[i] = nil
	}
	a.bufs = a.bufs[:0]
}

// Len returns the number of buffers currently owned by the arena.
func (a *Arena) Len() int {
	return len(a.bufs)
}
