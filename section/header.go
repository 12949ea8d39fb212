package section

import (
	"fmt"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/internal/hash"
)

// Header is the fixed-size section at the start of a container.
//
//	Bytes | Field
//	------|----------------------------------------------
//	0-3   | magic tag (0x035F51B5)
//	4     | major version
//	5     | minor version
//	6-7   | flags
//	8-31  | DataFormat
//	32-39 | spectrum count
//	40-47 | Division offset
//	48-55 | Division length
//	56-59 | Division checksum
//	60-63 | header checksum (bytes 0-59)
type Header struct {
	VersionMajor uint8
	VersionMinor uint8
	Flags        uint16
	Format       DataFormat

	// SpectrumCount, DivisionOffset, DivisionLength and DivisionChecksum are
	// patched in once the Division has been written.
	SpectrumCount    uint64
	DivisionOffset   uint64
	DivisionLength   uint64
	DivisionChecksum uint32
}

// NewHeader creates a header for a container in the given format.
func NewHeader(df DataFormat) *Header {
	h := &Header{
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
		Format:       df,
	}
	if df.IsLossy() {
		h.Flags |= FlagLossy
	}

	return h
}

// IsLossy reports whether the lossy flag is set.
func (h Header) IsLossy() bool {
	return h.Flags&FlagLossy != 0
}

// Bytes serializes the header and computes its checksum.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)

	engine.PutUint32(b[0:4], MagicTag)
	b[4] = h.VersionMajor
	b[5] = h.VersionMinor
	engine.PutUint16(b[6:8], h.Flags)
	h.Format.WriteToSlice(b, DataFormatOffset)
	engine.PutUint64(b[32:40], h.SpectrumCount)
	engine.PutUint64(b[40:48], h.DivisionOffset)
	engine.PutUint64(b[48:56], h.DivisionLength)
	engine.PutUint32(b[56:60], h.DivisionChecksum)
	engine.PutUint32(b[60:64], hash.Checksum32(b[:60]))

	return b
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the header (must be exactly 64 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize, ErrInvalidMagic, ErrUnsupportedVersion,
//     ErrChecksumMismatch or a DataFormat validation error
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	if magic := engine.Uint32(data[0:4]); magic != MagicTag {
		return fmt.Errorf("%w: 0x%08x", errs.ErrInvalidMagic, magic)
	}

	h.VersionMajor = data[4]
	h.VersionMinor = data[5]
	if h.VersionMajor != VersionMajor {
		return fmt.Errorf("%w: %d.%d", errs.ErrUnsupportedVersion, h.VersionMajor, h.VersionMinor)
	}

	if want, got := engine.Uint32(data[60:64]), hash.Checksum32(data[:60]); want != got {
		return fmt.Errorf("%w: header stores 0x%08x, computed 0x%08x", errs.ErrChecksumMismatch, want, got)
	}

	df, err := ParseDataFormat(data[DataFormatOffset : DataFormatOffset+DataFormatSize])
	if err != nil {
		return err
	}

	h.Flags = engine.Uint16(data[6:8])
	h.Format = df
	h.SpectrumCount = engine.Uint64(data[32:40])
	h.DivisionOffset = engine.Uint64(data[40:48])
	h.DivisionLength = engine.Uint64(data[48:56])
	h.DivisionChecksum = engine.Uint32(data[56:60])

	return nil
}

// ParseHeader parses a Header from the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.ErrInvalidHeaderSize
	}

	h := Header{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}

// HasMagic reports whether data starts with the container magic tag.
func HasMagic(data []byte) bool {
	return len(data) >= 4 && engine.Uint32(data[0:4]) == MagicTag
}
