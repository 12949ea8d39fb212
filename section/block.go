package section

import (
	"fmt"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/internal/hash"
)

// BlockRef locates one length-prefixed block. Length includes the prefix.
type BlockRef struct {
	Offset uint64
	Length uint64
}

// End returns the offset just past the block.
func (r BlockRef) End() uint64 {
	return r.Offset + r.Length
}

// PayloadLength returns the length of the payload after the prefix.
func (r BlockRef) PayloadLength() uint64 {
	if r.Length < BlockPrefixSize {
		return 0
	}

	return r.Length - BlockPrefixSize
}

// AppendBlockPrefix appends the length and checksum prefix of payload.
func AppendBlockPrefix(dst []byte, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > MaxBlockPayload {
		return dst, fmt.Errorf("%w: block payload of %d bytes exceeds %d", errs.ErrEncoding, len(payload), uint64(MaxBlockPayload))
	}

	dst = engine.AppendUint32(dst, uint32(len(payload))) //nolint: gosec
	dst = engine.AppendUint32(dst, hash.Checksum32(payload))

	return dst, nil
}

// ParseBlock validates a complete block (prefix and payload) and returns its payload.
//
// Returns an error wrapping errs.ErrContainerIntegrity if the prefix length
// disagrees with the block size or the checksum does not match.
func ParseBlock(data []byte) ([]byte, error) {
	if len(data) < BlockPrefixSize {
		return nil, fmt.Errorf("%w: block of %d bytes is shorter than its prefix", errs.ErrContainerIntegrity, len(data))
	}

	length := engine.Uint32(data[0:4])
	payload := data[BlockPrefixSize:]
	if uint64(length) != uint64(len(payload)) {
		return nil, fmt.Errorf("%w: block prefix announces %d bytes, index records %d", errs.ErrContainerIntegrity, length, len(payload))
	}

	if want, got := engine.Uint32(data[4:8]), hash.Checksum32(payload); want != got {
		return nil, fmt.Errorf("%w: %w: block stores 0x%08x, computed 0x%08x", errs.ErrContainerIntegrity, errs.ErrChecksumMismatch, want, got)
	}

	return payload, nil
}
