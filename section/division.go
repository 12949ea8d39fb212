package section

import (
	"fmt"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

// ArraySource records how a spectrum array was encoded in the source document.
type ArraySource struct {
	Compression format.SourceCompression
	Width       format.ElementWidth
}

// pack stores the width in the low nibble and the compression in the high nibble.
func (s ArraySource) pack() byte {
	return byte(s.Compression)<<4 | byte(s.Width)&0x0f
}

func unpackArraySource(b byte) ArraySource {
	return ArraySource{
		Compression: format.SourceCompression(b >> 4),
		Width:       format.ElementWidth(b & 0x0f),
	}
}

// IsValid reports whether both fields hold known values.
func (s ArraySource) IsValid() bool {
	return s.Compression.IsValid() && s.Width.IsValid()
}

// DivisionEntry locates the three blocks of one spectrum.
//
//	Bytes | Field
//	------|------------------------------
//	0-15  | Meta block ref (offset, length)
//	16-31 | m/z block ref
//	32-47 | intensity block ref
//	48-51 | array length (elements)
//	52    | m/z source descriptor
//	53    | intensity source descriptor
//	54-55 | reserved
type DivisionEntry struct {
	Meta        BlockRef
	Mz          BlockRef
	Intensity   BlockRef
	ArrayLength uint32
	MzSource    ArraySource
	IntSource   ArraySource
}

func (e DivisionEntry) appendTo(dst []byte) []byte {
	dst = appendRef(dst, e.Meta)
	dst = appendRef(dst, e.Mz)
	dst = appendRef(dst, e.Intensity)
	dst = engine.AppendUint32(dst, e.ArrayLength)
	dst = append(dst, e.MzSource.pack(), e.IntSource.pack(), 0, 0)

	return dst
}

func parseEntry(b []byte) DivisionEntry {
	return DivisionEntry{
		Meta:        parseRef(b[0:16]),
		Mz:          parseRef(b[16:32]),
		Intensity:   parseRef(b[32:48]),
		ArrayLength: engine.Uint32(b[48:52]),
		MzSource:    unpackArraySource(b[52]),
		IntSource:   unpackArraySource(b[53]),
	}
}

func appendRef(dst []byte, r BlockRef) []byte {
	dst = engine.AppendUint64(dst, r.Offset)
	return engine.AppendUint64(dst, r.Length)
}

func parseRef(b []byte) BlockRef {
	return BlockRef{Offset: engine.Uint64(b[0:8]), Length: engine.Uint64(b[8:16])}
}

// Division is the trailing index of a container.
//
// Layout: a 48-byte preamble (spectrum count, source size, prologue ref,
// epilogue ref), the length-prefixed namespace and source name, then one
// fixed-size entry per spectrum in ordinal order.
type Division struct {
	SourceSize uint64
	Prologue   BlockRef
	Epilogue   BlockRef
	Namespace  string
	SourceName string
	Entries    []DivisionEntry
}

// Size returns the serialized size in bytes.
func (d *Division) Size() int {
	return DivisionPreambleSize + 2 + len(d.Namespace) + 2 + len(d.SourceName) + len(d.Entries)*DivisionEntrySize
}

// Bytes serializes the Division.
func (d *Division) Bytes() ([]byte, error) {
	if len(d.Namespace) > MaxNameLength || len(d.SourceName) > MaxNameLength {
		return nil, fmt.Errorf("%w: namespace or source name longer than %d bytes", errs.ErrInvalidDivisionSize, MaxNameLength)
	}

	b := make([]byte, 0, d.Size())
	b = engine.AppendUint64(b, uint64(len(d.Entries)))
	b = engine.AppendUint64(b, d.SourceSize)
	b = appendRef(b, d.Prologue)
	b = appendRef(b, d.Epilogue)
	b = engine.AppendUint16(b, uint16(len(d.Namespace))) //nolint: gosec
	b = append(b, d.Namespace...)
	b = engine.AppendUint16(b, uint16(len(d.SourceName))) //nolint: gosec
	b = append(b, d.SourceName...)
	for i := range d.Entries {
		b = d.Entries[i].appendTo(b)
	}

	return b, nil
}

// ParseDivision parses a serialized Division.
func ParseDivision(data []byte) (*Division, error) {
	if len(data) < DivisionPreambleSize+4 {
		return nil, fmt.Errorf("%w: %d bytes", errs.ErrInvalidDivisionSize, len(data))
	}

	count := engine.Uint64(data[0:8])
	d := &Division{
		SourceSize: engine.Uint64(data[8:16]),
		Prologue:   parseRef(data[16:32]),
		Epilogue:   parseRef(data[32:48]),
	}

	pos := DivisionPreambleSize
	var err error
	if d.Namespace, pos, err = readName(data, pos); err != nil {
		return nil, err
	}
	if d.SourceName, pos, err = readName(data, pos); err != nil {
		return nil, err
	}

	rest := uint64(len(data) - pos)
	if rest%DivisionEntrySize != 0 || rest/DivisionEntrySize != count {
		return nil, fmt.Errorf("%w: %d entry bytes for %d spectra", errs.ErrInvalidDivisionSize, rest, count)
	}

	d.Entries = make([]DivisionEntry, count)
	for i := range d.Entries {
		d.Entries[i] = parseEntry(data[pos : pos+DivisionEntrySize])
		pos += DivisionEntrySize
	}

	return d, nil
}

func readName(data []byte, pos int) (string, int, error) {
	if pos+2 > len(data) {
		return "", pos, fmt.Errorf("%w: truncated name", errs.ErrInvalidDivisionSize)
	}
	n := int(engine.Uint16(data[pos : pos+2]))
	pos += 2
	if pos+n > len(data) {
		return "", pos, fmt.Errorf("%w: truncated name", errs.ErrInvalidDivisionSize)
	}

	return string(data[pos : pos+n]), pos + n, nil
}

// Validate checks that every block lies inside [HeaderSize, limit), that body
// blocks appear in write order without overlap, and that every entry carries a
// valid source descriptor.
func (d *Division) Validate(limit uint64) error {
	next := uint64(HeaderSize)
	check := func(what string, r BlockRef) error {
		if r.Length < BlockPrefixSize {
			return fmt.Errorf("%w: %s block length %d", errs.ErrInvalidBlockRef, what, r.Length)
		}
		if r.Offset < next || r.End() < r.Offset || r.End() > limit {
			return fmt.Errorf("%w: %s block [%d, %d) outside [%d, %d)", errs.ErrInvalidBlockRef, what, r.Offset, r.End(), next, limit)
		}
		next = r.End()

		return nil
	}

	if err := check("prologue", d.Prologue); err != nil {
		return err
	}
	for i, e := range d.Entries {
		if err := check(fmt.Sprintf("spectrum %d metadata", i), e.Meta); err != nil {
			return err
		}
		if err := check(fmt.Sprintf("spectrum %d m/z", i), e.Mz); err != nil {
			return err
		}
		if err := check(fmt.Sprintf("spectrum %d intensity", i), e.Intensity); err != nil {
			return err
		}
		if !e.MzSource.IsValid() || !e.IntSource.IsValid() {
			return fmt.Errorf("%w: spectrum %d has an invalid source descriptor", errs.ErrInvalidBlockRef, i)
		}
	}

	return check("epilogue", d.Epilogue)
}
