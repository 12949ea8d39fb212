package mzml

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/arloliu/mscompress/encoding"
	"github.com/arloliu/mscompress/endian"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/options"
	"github.com/arloliu/mscompress/internal/pool"
	"github.com/arloliu/mscompress/section"
)

var le = endian.GetLittleEndianEngine()

// RawArray is one m/z or intensity array as found in the source document.
type RawArray struct {
	// Text is the base64 payload with surrounding whitespace intact.
	Text []byte
	Desc encoding.Descriptor
	// DeclaredLength is the arrayLength attribute, or -1 when absent.
	DeclaredLength int
	// EncodedLength is the encodedLength attribute, or -1 when absent.
	EncodedLength int
}

// Spectrum is one decoded spectrum element.
//
// Text slices point into scratch buffers owned by the spectrum; they are
// invalid after Release.
type Spectrum struct {
	Ordinal int
	ID      string
	// Offset is the absolute byte offset of the <spectrum tag.
	Offset int64
	// DeclaredLength is defaultArrayLength, or -1 when absent.
	DeclaredLength int

	Mz        RawArray
	Intensity RawArray

	// Fragment is the markup from the end of the previous spectrum (or the
	// prologue) through </spectrum>, with both payloads and their
	// encodedLength values cut out. Fragment.Start marks the <spectrum tag.
	Fragment section.Fragment

	arena *pool.Arena
}

// Array returns the raw array of role.
func (s *Spectrum) Array(role format.ArrayRole) *RawArray {
	if role == format.RoleMz {
		return &s.Mz
	}

	return &s.Intensity
}

// Release returns the spectrum's buffers to the scratch pool.
func (s *Spectrum) Release() {
	if s.arena != nil {
		s.arena.Release()
		s.arena = nil
	}
}

// DecoderOption configures a Decoder.
type DecoderOption = options.Option[*Decoder]

// WithParamGroups seeds referenceableParamGroup definitions, for decoding a
// byte range that does not include the document's prologue.
func WithParamGroups(groups ParamGroups) DecoderOption {
	return options.NoError(func(d *Decoder) {
		for id, accs := range groups {
			d.groups[id] = accs
		}
	})
}

// WithFirstOrdinal sets the ordinal of the first spectrum.
func WithFirstOrdinal(n int) DecoderOption {
	return options.New(func(d *Decoder) error {
		if n < 0 {
			return fmt.Errorf("mzml: negative first ordinal %d", n)
		}
		d.ordinal = n

		return nil
	})
}

// WithReadBufferSize sets the size of the read buffer.
func WithReadBufferSize(size int) DecoderOption {
	return options.New(func(d *Decoder) error {
		if size < 16 {
			return fmt.Errorf("mzml: read buffer size %d too small", size)
		}
		d.bufSize = size

		return nil
	})
}

// Decoder reads spectra one at a time from an mzML document.
//
// Usage:
//
//	dec, err := mzml.NewDecoder(f)
//	prologue, err := dec.Prologue()
//	for {
//	    sp, err := dec.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	    sp.Release()
//	}
//	epilogue, err := dec.Epilogue()
//
// Note: Decoder is NOT safe for concurrent use.
type Decoder struct {
	s       *Scanner
	capture *pool.ByteBuffer
	groups  ParamGroups
	bufSize int

	ordinal       int
	namespace     string
	declaredCount int

	prologue []byte
	epilogue []byte
	pending  *Event
	started  bool
	finished bool
	err      error
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) (*Decoder, error) {
	d := &Decoder{
		groups:        make(ParamGroups),
		bufSize:       DefaultReadBufferSize,
		declaredCount: -1,
	}
	if err := options.Apply(d, opts...); err != nil {
		return nil, err
	}

	d.s = NewScannerSize(r, d.bufSize)
	d.capture = pool.GetScratch()
	d.s.SetCapture(d.capture)

	return d, nil
}

// Namespace returns the default namespace of the mzML element. It is known
// once Prologue has returned.
func (d *Decoder) Namespace() string {
	return d.namespace
}

// DeclaredCount returns the spectrumList count attribute, or -1 when absent.
// It is known once Prologue has returned.
func (d *Decoder) DeclaredCount() int {
	return d.declaredCount
}

// ParamGroups returns the referenceableParamGroup definitions seen so far.
func (d *Decoder) ParamGroups() ParamGroups {
	return d.groups
}

// Offset returns the number of source bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.s.Offset()
}

// Prologue returns every byte before the first <spectrum tag. A document
// without spectra is entirely prologue.
func (d *Decoder) Prologue() ([]byte, error) {
	if d.started {
		return d.prologue, d.err
	}
	d.started = true

	group := ""
	for {
		ev, err := d.s.Next()
		if errors.Is(err, io.EOF) {
			d.prologue = append([]byte(nil), d.capture.B...)
			d.finish()

			return d.prologue, nil
		}
		if err != nil {
			return nil, d.fail(err)
		}

		if ev.Kind == EventEnd {
			if ev.Name == "referenceableParamGroup" {
				group = ""
			}

			continue
		}

		switch ev.Name {
		case "indexedmzML":
			if ns, ok := ev.Attr("xmlns"); ok && d.namespace == "" {
				d.namespace = ns
			}
		case "mzML":
			if ns, ok := ev.Attr("xmlns"); ok {
				d.namespace = ns
			}
		case "referenceableParamGroup":
			group, _ = ev.Attr("id")
			if _, ok := d.groups[group]; !ok {
				d.groups[group] = nil
			}
		case "cvParam":
			if group != "" {
				if acc, ok := ev.Attr("accession"); ok {
					d.groups[group] = append(d.groups[group], acc)
				}
			}
		case "spectrumList":
			if v, ok := ev.Attr("count"); ok {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return nil, d.fail(errs.NewParseError(ev.Offset, "invalid spectrumList count %q", v))
				}
				d.declaredCount = n
			}
		case "spectrum":
			d.prologue = append([]byte(nil), d.capture.B[:ev.CaptureStart]...)
			d.pending = ev

			return d.prologue, nil
		}
	}
}

// Next returns the next spectrum, or io.EOF after the last one.
//
// The caller owns the returned spectrum and must call Release when done.
func (d *Decoder) Next() (*Spectrum, error) {
	if _, err := d.Prologue(); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}

	if ev := d.pending; ev != nil {
		d.pending = nil
		return d.readSpectrum(ev, ev.CaptureStart)
	}
	if d.finished {
		return nil, io.EOF
	}

	for {
		ev, err := d.s.Next()
		if errors.Is(err, io.EOF) {
			d.epilogue = append([]byte(nil), d.capture.B...)
			d.finish()

			return nil, io.EOF
		}
		if err != nil {
			return nil, d.fail(err)
		}

		if ev.Kind == EventStart && ev.Name == "spectrum" {
			// the fragment keeps the markup since the previous </spectrum>
			return d.readSpectrum(ev, 0)
		}
		if ev.Kind == EventEnd && ev.Name == "spectrumList" {
			return nil, d.drain()
		}
	}
}

// Epilogue returns every byte after the last </spectrum>. It is available
// once Next has returned io.EOF.
func (d *Decoder) Epilogue() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if !d.finished {
		return nil, errors.New("mzml: epilogue requested before the last spectrum was read")
	}

	return d.epilogue, nil
}

// drain consumes the rest of the document after </spectrumList>.
func (d *Decoder) drain() error {
	for {
		_, err := d.s.Next()
		if errors.Is(err, io.EOF) {
			d.epilogue = append([]byte(nil), d.capture.B...)
			d.finish()

			return io.EOF
		}
		if err != nil {
			return d.fail(err)
		}
	}
}

// Close releases the decoder's buffers. Spectra already returned stay valid
// until their own Release.
func (d *Decoder) Close() {
	if d.capture != nil {
		d.s.SetCapture(nil)
		pool.PutScratch(d.capture)
		d.capture = nil
	}
	if d.err == nil && !d.finished {
		d.err = errors.New("mzml: decoder closed")
	}
}

func (d *Decoder) finish() {
	d.finished = true
	d.s.SetCapture(nil)
	pool.PutScratch(d.capture)
	d.capture = nil
}

func (d *Decoder) fail(err error) error {
	d.err = err
	if d.capture != nil {
		d.s.SetCapture(nil)
		pool.PutScratch(d.capture)
		d.capture = nil
	}

	return err
}

// readSpectrum parses the spectrum whose start event is ev. base is the
// capture position where the spectrum's fragment begins.
func (d *Decoder) readSpectrum(ev *Event, base int) (*Spectrum, error) {
	sp := &Spectrum{
		Ordinal:        d.ordinal,
		Offset:         ev.Offset,
		DeclaredLength: -1,
		arena:          pool.NewArena(),
	}
	sp.ID, _ = ev.Attr("id")

	if v, ok := ev.Attr("defaultArrayLength"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sp.Release()
			return nil, d.fail(errs.NewParseError(ev.Offset, "invalid defaultArrayLength %q", v))
		}
		sp.DeclaredLength = n
	}

	if err := d.readSpectrumBody(sp, ev.SelfClosing, base, ev.CaptureStart-base); err != nil {
		sp.Release()
		return nil, d.fail(err)
	}

	d.ordinal++
	d.capture.Reset()

	return sp, nil
}

func (d *Decoder) readSpectrumBody(sp *Spectrum, selfClosing bool, base int, start int) error {
	var (
		cuts   []section.Cut
		arr    *arrayState
		haveMz bool
		haveIn bool
	)

	for {
		ev, err := d.s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errs.NewParseError(d.s.Offset(), "unexpected end of document inside spectrum %q", sp.ID)
			}

			return err
		}

		if ev.Kind == EventEnd {
			switch ev.Name {
			case "binaryDataArray":
				arr = nil
			case "spectrum":
				if !haveMz || !haveIn {
					return fmt.Errorf("%w: spectrum %q has no %s", errs.ErrMalformedArray, sp.ID, missingRole(haveMz))
				}

				buf := sp.arena.Buffer()
				frag, err := section.BuildFragment(buf.B, d.capture.B[base:], start, cuts)
				if err != nil {
					return err
				}
				buf.B = frag.Text
				sp.Fragment = frag

				return nil
			}

			continue
		}
		if selfClosing {
			continue
		}

		switch ev.Name {
		case "binaryDataArray":
			arr = newArrayState(ev, base)
			if err := arr.err; err != nil {
				return err
			}
		case "cvParam":
			if arr != nil {
				if acc, ok := ev.Attr("accession"); ok {
					arr.apply(acc)
				}
			}
		case "referenceableParamGroupRef":
			if arr != nil {
				ref, _ := ev.Attr("ref")
				accs, ok := d.groups[ref]
				if !ok {
					return errs.NewParseError(ev.Offset, "unknown referenceableParamGroup %q", ref)
				}
				for _, acc := range accs {
					arr.apply(acc)
				}
			}
		case "binary":
			if arr == nil {
				continue
			}

			role, err := arr.role()
			if err != nil {
				return fmt.Errorf("spectrum %q: %w", sp.ID, err)
			}
			if role == 0 {
				continue
			}
			if (role == format.RoleMz && haveMz) || (role == format.RoleIntensity && haveIn) {
				return fmt.Errorf("%w: spectrum %q has more than one %s", errs.ErrMalformedArray, sp.ID, role)
			}

			desc, err := arr.descriptor()
			if err != nil {
				return fmt.Errorf("spectrum %q %s: %w", sp.ID, role, err)
			}

			raw := sp.Array(role)
			raw.Desc = desc
			raw.DeclaredLength = arr.arrayLength
			raw.EncodedLength = arr.encodedLength

			if !ev.SelfClosing {
				buf := sp.arena.Buffer()
				if buf.B, err = d.s.ReadText(buf.B); err != nil {
					return err
				}
				raw.Text = buf.B

				lenKind, binKind := section.HoleMzEncodedLength, section.HoleMzBinary
				if role == format.RoleIntensity {
					lenKind, binKind = section.HoleIntensityEncodedLength, section.HoleIntensityBinary
				}
				if arr.encLenStart >= 0 {
					cuts = append(cuts, section.Cut{Start: arr.encLenStart, End: arr.encLenEnd, Kind: lenKind})
				}
				at := ev.CaptureEnd - base
				cuts = append(cuts, section.Cut{Start: at, End: at, Kind: binKind})
			}

			if role == format.RoleMz {
				haveMz = true
			} else {
				haveIn = true
			}
		}
	}
}

func missingRole(haveMz bool) string {
	if haveMz {
		return "intensity array"
	}

	return "m/z array"
}

// arrayState accumulates the descriptor of one binaryDataArray.
type arrayState struct {
	encLenStart   int
	encLenEnd     int
	encodedLength int
	arrayLength   int

	zlib, none, f32, f64, mz, intensity bool
	numpress                            string

	err error
}

func newArrayState(ev *Event, base int) *arrayState {
	a := &arrayState{encLenStart: -1, encLenEnd: -1, encodedLength: -1, arrayLength: -1}

	if attr := ev.attrRef("encodedLength"); attr != nil {
		n, err := strconv.Atoi(attr.Value)
		if err != nil || n < 0 {
			a.err = errs.NewParseError(ev.Offset, "invalid encodedLength %q", attr.Value)
			return a
		}
		a.encodedLength = n
		if attr.CaptureStart >= 0 {
			a.encLenStart = attr.CaptureStart - base
			a.encLenEnd = attr.CaptureEnd - base
		}
	}
	if v, ok := ev.Attr("arrayLength"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.err = errs.NewParseError(ev.Offset, "invalid arrayLength %q", v)
			return a
		}
		a.arrayLength = n
	}

	return a
}

func (a *arrayState) apply(acc string) {
	switch acc {
	case AccZlib:
		a.zlib = true
	case AccNoCompression:
		a.none = true
	case AccFloat32:
		a.f32 = true
	case AccFloat64:
		a.f64 = true
	case AccMzArray:
		a.mz = true
	case AccIntensity:
		a.intensity = true
	default:
		if name, ok := numpressAccessions[acc]; ok {
			a.numpress = name
		}
	}
}

// role returns the array role, or 0 for an array that is neither m/z nor
// intensity.
func (a *arrayState) role() (format.ArrayRole, error) {
	switch {
	case a.mz && a.intensity:
		return 0, fmt.Errorf("%w: array declares both m/z and intensity", errs.ErrAmbiguousEncoding)
	case a.mz:
		return format.RoleMz, nil
	case a.intensity:
		return format.RoleIntensity, nil
	default:
		return 0, nil
	}
}

func (a *arrayState) descriptor() (encoding.Descriptor, error) {
	desc := encoding.Descriptor{Engine: le}

	switch {
	case a.numpress != "":
		return desc, fmt.Errorf("%w: unsupported array compression %q", errs.ErrDecompression, a.numpress)
	case a.zlib && a.none:
		return desc, fmt.Errorf("%w: array declares both zlib and no compression", errs.ErrAmbiguousEncoding)
	case a.zlib:
		desc.Compression = format.SourceZlib
	case a.none:
		desc.Compression = format.SourceNone
	default:
		return desc, fmt.Errorf("%w: array declares no compression kind", errs.ErrAmbiguousEncoding)
	}

	switch {
	case a.f32 && a.f64:
		return desc, fmt.Errorf("%w: array declares both 32-bit and 64-bit floats", errs.ErrAmbiguousEncoding)
	case a.f32:
		desc.Width = format.Width32
	case a.f64:
		desc.Width = format.Width64
	default:
		return desc, fmt.Errorf("%w: array declares no float width", errs.ErrAmbiguousEncoding)
	}

	return desc, nil
}
