package section

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/mscompress/errs"
)

// HoleKind names the value that fills a hole in a metadata fragment.
type HoleKind uint8

const (
	HoleMzBinary               HoleKind = 1 // base64 text of the m/z array
	HoleIntensityBinary        HoleKind = 2 // base64 text of the intensity array
	HoleMzEncodedLength        HoleKind = 3 // encodedLength attribute value of the m/z array
	HoleIntensityEncodedLength HoleKind = 4 // encodedLength attribute value of the intensity array

	holeKindCount = 5
)

func (k HoleKind) String() string {
	switch k {
	case HoleMzBinary:
		return "MzBinary"
	case HoleIntensityBinary:
		return "IntensityBinary"
	case HoleMzEncodedLength:
		return "MzEncodedLength"
	case HoleIntensityEncodedLength:
		return "IntensityEncodedLength"
	default:
		return fmt.Sprintf("HoleKind(%d)", uint8(k))
	}
}

// IsValid reports whether k is a known hole kind.
func (k HoleKind) IsValid() bool {
	return k >= HoleMzBinary && k <= HoleIntensityEncodedLength
}

// Hole marks a position in Fragment.Text where a value is spliced back in.
type Hole struct {
	Pos  int
	Kind HoleKind
}

// Cut is a byte range of raw markup replaced by a hole.
type Cut struct {
	Start int
	End   int
	Kind  HoleKind
}

// Fill holds the value spliced into each hole kind.
type Fill [holeKindCount][]byte

// Set assigns the value of kind.
func (f *Fill) Set(kind HoleKind, value []byte) {
	f[kind] = value
}

// Fragment is the markup of one spectrum with its array payloads cut out.
//
// Text may begin with markup that preceded the element in the document, such
// as whitespace or comments. Start is the offset in Text of the element's
// start tag.
type Fragment struct {
	Text  []byte
	Start int
	Holes []Hole
}

// BuildFragment removes cuts from raw and records a hole at each cut.
//
// start is the offset of the element's start tag in raw. Cuts must be
// ordered, non-overlapping, inside raw and not before start. The returned
// Text is appended to dst[:0].
func BuildFragment(dst []byte, raw []byte, start int, cuts []Cut) (Fragment, error) {
	if start < 0 || start > len(raw) {
		return Fragment{}, fmt.Errorf("%w: element start %d outside %d bytes", errs.ErrInvalidFragment, start, len(raw))
	}

	text := dst[:0]
	holes := make([]Hole, 0, len(cuts))

	prev := 0
	for _, c := range cuts {
		if c.Start < max(prev, start) || c.End < c.Start || c.End > len(raw) || !c.Kind.IsValid() {
			return Fragment{}, fmt.Errorf("%w: cut [%d, %d) of kind %s", errs.ErrInvalidFragment, c.Start, c.End, c.Kind)
		}
		text = append(text, raw[prev:c.Start]...)
		holes = append(holes, Hole{Pos: len(text), Kind: c.Kind})
		prev = c.End
	}
	text = append(text, raw[prev:]...)

	return Fragment{Text: text, Start: start, Holes: holes}, nil
}

// AppendTo appends the serialized fragment to dst.
//
// Layout: uvarint element start, uvarint hole count, then per hole a uvarint
// position delta and a kind byte, then the text.
func (f Fragment) AppendTo(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(f.Start)) //nolint: gosec
	dst = binary.AppendUvarint(dst, uint64(len(f.Holes)))
	prev := f.Start
	for _, h := range f.Holes {
		dst = binary.AppendUvarint(dst, uint64(h.Pos-prev)) //nolint: gosec
		dst = append(dst, byte(h.Kind))
		prev = h.Pos
	}

	return append(dst, f.Text...)
}

// ParseFragment parses a serialized fragment. Text aliases data.
//
// Hole positions are validated against the text, so AppendSpliced never
// slices out of range on a parsed fragment.
func ParseFragment(data []byte) (Fragment, error) {
	start, n := binary.Uvarint(data)
	if n <= 0 || start > uint64(len(data)) {
		return Fragment{}, fmt.Errorf("%w: bad element start", errs.ErrInvalidFragment)
	}
	pos := n

	count, n := binary.Uvarint(data[pos:])
	if n <= 0 || count > uint64(len(data)) {
		return Fragment{}, fmt.Errorf("%w: bad hole count", errs.ErrInvalidFragment)
	}
	pos += n

	holes := make([]Hole, 0, count)
	at := start
	for range count {
		delta, n := binary.Uvarint(data[pos:])
		if n <= 0 || pos+n >= len(data) {
			return Fragment{}, fmt.Errorf("%w: truncated hole table", errs.ErrInvalidFragment)
		}
		if delta > uint64(len(data))-at {
			return Fragment{}, fmt.Errorf("%w: hole delta %d overruns %d bytes", errs.ErrInvalidFragment, delta, len(data))
		}
		pos += n
		kind := HoleKind(data[pos])
		pos++
		if !kind.IsValid() {
			return Fragment{}, fmt.Errorf("%w: unknown hole kind %d", errs.ErrInvalidFragment, uint8(kind))
		}
		at += delta
		holes = append(holes, Hole{Pos: int(at), Kind: kind}) //nolint: gosec
	}

	text := data[pos:]
	if int(start) > len(text) { //nolint: gosec
		return Fragment{}, fmt.Errorf("%w: element start %d beyond text of %d bytes", errs.ErrInvalidFragment, start, len(text))
	}
	for _, h := range holes {
		if h.Pos > len(text) {
			return Fragment{}, fmt.Errorf("%w: hole at %d beyond text of %d bytes", errs.ErrInvalidFragment, h.Pos, len(text))
		}
	}

	return Fragment{Text: text, Start: int(start), Holes: holes}, nil //nolint: gosec
}

// AppendSpliced appends the text with every hole replaced by its fill value.
func (f Fragment) AppendSpliced(dst []byte, fill *Fill) []byte {
	prev := 0
	for _, h := range f.Holes {
		dst = append(dst, f.Text[prev:h.Pos]...)
		dst = append(dst, fill[h.Kind]...)
		prev = h.Pos
	}

	return append(dst, f.Text[prev:]...)
}

// SplicedLen returns the length AppendSpliced would produce.
func (f Fragment) SplicedLen(fill *Fill) int {
	n := len(f.Text)
	for _, h := range f.Holes {
		n += len(fill[h.Kind])
	}

	return n
}
