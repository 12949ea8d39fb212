package mzml

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/internal/pool"
)

// DefaultReadBufferSize is the bufio size used by NewScanner.
const DefaultReadBufferSize = 256 * 1024

// EventKind identifies a structural event.
type EventKind uint8

const (
	EventStart EventKind = iota + 1 // EventStart is an element start tag.
	EventEnd                        // EventEnd is an element end tag.
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Attr is one attribute of a start tag.
type Attr struct {
	// Name is the qualified attribute name as written.
	Name string
	// Value is the attribute value with entities decoded.
	Value string
	// CaptureStart and CaptureEnd delimit the raw value (between the quotes)
	// inside the capture buffer, or are -1 when capture is disabled.
	CaptureStart int
	CaptureEnd   int
}

// Event is one structural event produced by Scanner.Next.
//
// Attrs is only valid until the next call to Next.
type Event struct {
	Kind EventKind
	// Name is the local element name (namespace prefix removed).
	Name  string
	Attrs []Attr
	// Offset is the absolute byte offset of the tag's '<'.
	Offset int64
	// CaptureStart and CaptureEnd delimit the tag inside the capture buffer,
	// or are -1 when capture is disabled.
	CaptureStart int
	CaptureEnd   int
	// SelfClosing is set on the start event of an empty-element tag. The
	// matching end event is delivered by the next call to Next.
	SelfClosing bool
}

// Attr returns the value of the attribute with the given qualified name.
func (e *Event) Attr(name string) (string, bool) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			return e.Attrs[i].Value, true
		}
	}

	return "", false
}

// attrRef returns a pointer to the named attribute, or nil.
func (e *Event) attrRef(name string) *Attr {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			return &e.Attrs[i]
		}
	}

	return nil
}

// Scanner is a pull tokenizer over an XML byte stream.
//
// It yields element start and end events with absolute byte offsets, skips
// comments, processing instructions, DOCTYPE and CDATA sections, and checks
// that tags nest. Character data is skipped unless ReadText is called right
// after a start event, so large base64 payloads are only materialized when
// the caller asks for them.
//
// When a capture buffer is set, every consumed byte is appended to it except
// text returned by ReadText. Concatenating the captured bytes with the
// ReadText results in document order reproduces the input exactly.
//
// Note: Scanner is NOT safe for concurrent use.
type Scanner struct {
	r       *bufio.Reader
	off     int64
	capture *pool.ByteBuffer
	stack   []string

	attrs   []Attr
	nameBuf []byte
	valBuf  []byte

	ltConsumed bool
	ltOffset   int64
	ltCapture  int
	textReady  bool
	pendingEnd *Event
	endEvent   Event
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return NewScannerSize(r, DefaultReadBufferSize)
}

// NewScannerSize creates a Scanner with the given read buffer size.
func NewScannerSize(r io.Reader, size int) *Scanner {
	return &Scanner{
		r:     bufio.NewReaderSize(r, size),
		stack: make([]string, 0, 16),
		attrs: make([]Attr, 0, 8),
	}
}

// SetCapture sets the buffer receiving consumed bytes. Nil disables capture.
func (s *Scanner) SetCapture(bb *pool.ByteBuffer) {
	s.capture = bb
}

// Capture returns the current capture buffer.
func (s *Scanner) Capture() *pool.ByteBuffer {
	return s.capture
}

// Offset returns the number of bytes consumed so far.
func (s *Scanner) Offset() int64 {
	return s.off
}

// Depth returns the number of open elements.
func (s *Scanner) Depth() int {
	return len(s.stack)
}

func (s *Scanner) captureLen() int {
	if s.capture == nil {
		return -1
	}

	return len(s.capture.B)
}

func (s *Scanner) parseErr(format string, args ...any) error {
	return errs.NewParseError(s.off, format, args...)
}

// Next returns the next structural event, or io.EOF after the document
// ends with every element closed.
func (s *Scanner) Next() (*Event, error) {
	s.textReady = false

	if s.pendingEnd != nil {
		ev := s.pendingEnd
		s.pendingEnd = nil

		return ev, nil
	}

	for {
		if !s.ltConsumed {
			if err := s.skipText(); err != nil {
				if errors.Is(err, io.EOF) {
					if len(s.stack) > 0 {
						return nil, s.parseErr("unexpected end of document, <%s> not closed", s.stack[len(s.stack)-1])
					}

					return nil, io.EOF
				}

				return nil, err
			}
		}
		s.ltConsumed = false

		ev, err := s.readMarkup()
		if err != nil {
			return nil, err
		}
		if ev != nil {
			return ev, nil
		}
	}
}

// ReadText returns the character data of the element whose start event was
// just returned, appended to dst. It must be called before the next call to
// Next; the following Next continues with the markup after the text.
func (s *Scanner) ReadText(dst []byte) ([]byte, error) {
	if !s.textReady {
		return dst, errors.New("mzml: ReadText called outside element content")
	}
	s.textReady = false

	for {
		data, err := s.r.ReadSlice('<')
		s.off += int64(len(data))

		if err == nil {
			dst = append(dst, data[:len(data)-1]...)
			if s.capture != nil {
				s.capture.B = append(s.capture.B, '<')
			}
			s.ltConsumed = true
			s.ltOffset = s.off - 1
			s.ltCapture = s.captureLen() - 1

			return dst, nil
		}

		dst = append(dst, data...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return dst, s.parseErr("unexpected end of document inside <%s>", s.stack[len(s.stack)-1])
		}

		return dst, err
	}
}

// skipText consumes character data up to and including the next '<'.
func (s *Scanner) skipText() error {
	for {
		data, err := s.r.ReadSlice('<')
		s.off += int64(len(data))
		if s.capture != nil {
			s.capture.B = append(s.capture.B, data...)
		}

		if err == nil {
			s.ltOffset = s.off - 1
			s.ltCapture = s.captureLen() - 1

			return nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		return err
	}
}

func (s *Scanner) readByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, s.parseErr("unexpected end of document in markup")
		}

		return 0, err
	}
	s.off++
	if s.capture != nil {
		s.capture.B = append(s.capture.B, b)
	}

	return b, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (s *Scanner) skipSpace(c byte) (byte, error) {
	var err error
	for isSpace(c) {
		if c, err = s.readByte(); err != nil {
			return 0, err
		}
	}

	return c, nil
}

// readName reads a name whose first byte is first and returns it with the
// byte that terminated it.
func (s *Scanner) readName(first byte) (string, byte, error) {
	if isSpace(first) || first == '>' || first == '/' || first == '=' || first == '<' {
		return "", 0, s.parseErr("expected name, found %q", first)
	}

	s.nameBuf = append(s.nameBuf[:0], first)
	for {
		c, err := s.readByte()
		if err != nil {
			return "", 0, err
		}
		if isSpace(c) || c == '>' || c == '/' || c == '=' {
			return string(s.nameBuf), c, nil
		}
		if c == '<' {
			return "", 0, s.parseErr("unexpected '<' in name")
		}
		s.nameBuf = append(s.nameBuf, c)
	}
}

// skipUntil consumes bytes until term (at most 3 bytes) has been read.
func (s *Scanner) skipUntil(term string) error {
	var win [3]byte
	n := len(term)
	for count := 1; ; count++ {
		c, err := s.readByte()
		if err != nil {
			return err
		}
		copy(win[:n-1], win[1:n])
		win[n-1] = c
		if count >= n && string(win[:n]) == term {
			return nil
		}
	}
}

// readMarkup parses the markup after a consumed '<'. It returns a nil event
// for markup that produces no event (comments, processing instructions).
func (s *Scanner) readMarkup() (*Event, error) {
	start := s.ltOffset
	capStart := s.ltCapture

	c, err := s.readByte()
	if err != nil {
		return nil, err
	}

	switch c {
	case '?':
		return nil, s.skipUntil("?>")
	case '!':
		return nil, s.skipDeclaration()
	case '/':
		return s.readEndTag(start, capStart)
	default:
		return s.readStartTag(c, start, capStart)
	}
}

func (s *Scanner) skipDeclaration() error {
	c, err := s.readByte()
	if err != nil {
		return err
	}

	switch c {
	case '-':
		if c, err = s.readByte(); err != nil {
			return err
		}
		if c != '-' {
			return s.parseErr("malformed comment")
		}

		return s.skipUntil("-->")
	case '[':
		for _, want := range []byte("CDATA[") {
			if c, err = s.readByte(); err != nil {
				return err
			}
			if c != want {
				return s.parseErr("malformed CDATA section")
			}
		}

		return s.skipUntil("]]>")
	default:
		depth := 0
		for {
			switch c {
			case '[':
				depth++
			case ']':
				depth--
			case '>':
				if depth <= 0 {
					return nil
				}
			}
			if c, err = s.readByte(); err != nil {
				return err
			}
		}
	}
}

func (s *Scanner) readEndTag(start int64, capStart int) (*Event, error) {
	c, err := s.readByte()
	if err != nil {
		return nil, err
	}

	name, c, err := s.readName(c)
	if err != nil {
		return nil, err
	}
	if c, err = s.skipSpace(c); err != nil {
		return nil, err
	}
	if c != '>' {
		return nil, s.parseErr("malformed end tag </%s>", name)
	}

	if len(s.stack) == 0 {
		return nil, errs.NewParseError(start, "unexpected end tag </%s>", name)
	}
	if top := s.stack[len(s.stack)-1]; top != name {
		return nil, errs.NewParseError(start, "mismatched end tag </%s>, expected </%s>", name, top)
	}
	s.stack = s.stack[:len(s.stack)-1]

	s.endEvent = Event{
		Kind:         EventEnd,
		Name:         localName(name),
		Offset:       start,
		CaptureStart: capStart,
		CaptureEnd:   s.captureLen(),
	}

	return &s.endEvent, nil
}

func (s *Scanner) readStartTag(first byte, start int64, capStart int) (*Event, error) {
	name, c, err := s.readName(first)
	if err != nil {
		return nil, err
	}

	s.attrs = s.attrs[:0]
	ev := &Event{
		Kind:         EventStart,
		Name:         localName(name),
		Offset:       start,
		CaptureStart: capStart,
	}

	for {
		if c, err = s.skipSpace(c); err != nil {
			return nil, err
		}

		switch c {
		case '>':
			s.stack = append(s.stack, name)
			ev.Attrs = s.attrs
			ev.CaptureEnd = s.captureLen()
			s.textReady = true

			return ev, nil
		case '/':
			if c, err = s.readByte(); err != nil {
				return nil, err
			}
			if c != '>' {
				return nil, s.parseErr("malformed empty-element tag <%s>", name)
			}
			ev.Attrs = s.attrs
			ev.CaptureEnd = s.captureLen()
			ev.SelfClosing = true
			s.endEvent = Event{
				Kind:         EventEnd,
				Name:         ev.Name,
				Offset:       start,
				CaptureStart: ev.CaptureEnd,
				CaptureEnd:   ev.CaptureEnd,
			}
			s.pendingEnd = &s.endEvent

			return ev, nil
		default:
			attr, next, err := s.readAttr(c)
			if err != nil {
				return nil, err
			}
			s.attrs = append(s.attrs, attr)
			c = next
		}
	}
}

// readAttr reads name="value" starting at first and returns the byte after
// the closing quote.
func (s *Scanner) readAttr(first byte) (Attr, byte, error) {
	name, c, err := s.readName(first)
	if err != nil {
		return Attr{}, 0, err
	}
	if c, err = s.skipSpace(c); err != nil {
		return Attr{}, 0, err
	}
	if c != '=' {
		return Attr{}, 0, s.parseErr("attribute %q has no value", name)
	}
	if c, err = s.readByte(); err != nil {
		return Attr{}, 0, err
	}
	if c, err = s.skipSpace(c); err != nil {
		return Attr{}, 0, err
	}
	if c != '"' && c != '\'' {
		return Attr{}, 0, s.parseErr("attribute %q value is not quoted", name)
	}
	quote := c

	attr := Attr{Name: name, CaptureStart: s.captureLen()}
	s.valBuf = s.valBuf[:0]
	for {
		if c, err = s.readByte(); err != nil {
			return Attr{}, 0, err
		}
		if c == quote {
			break
		}
		if c == '<' {
			return Attr{}, 0, s.parseErr("'<' in value of attribute %q", name)
		}
		s.valBuf = append(s.valBuf, c)
	}
	if attr.CaptureStart >= 0 {
		attr.CaptureEnd = s.captureLen() - 1
	} else {
		attr.CaptureEnd = -1
	}
	attr.Value = decodeEntities(s.valBuf)

	next, err := s.readByte()
	if err != nil {
		return Attr{}, 0, err
	}

	return attr, next, nil
}

func localName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}

	return name
}

var predefinedEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"quot": `"`,
	"apos": "'",
}

// decodeEntities resolves predefined and numeric character references.
// Unknown references are kept verbatim.
func decodeEntities(raw []byte) string {
	if bytes.IndexByte(raw, '&') < 0 {
		return string(raw)
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != '&' {
			sb.WriteByte(raw[i])
			continue
		}

		end := -1
		for j := i + 1; j < len(raw) && j-i <= 12; j++ {
			if raw[j] == ';' {
				end = j
				break
			}
		}
		if end < 0 {
			sb.WriteByte('&')
			continue
		}

		ref := string(raw[i+1 : end])
		if rep, ok := resolveEntity(ref); ok {
			sb.WriteString(rep)
			i = end

			continue
		}
		sb.WriteByte('&')
	}

	return sb.String()
}

func resolveEntity(ref string) (string, bool) {
	if rep, ok := predefinedEntities[ref]; ok {
		return rep, true
	}
	if !strings.HasPrefix(ref, "#") {
		return "", false
	}

	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(ref, "#x") || strings.HasPrefix(ref, "#X") {
		n, err = strconv.ParseUint(ref[2:], 16, 32)
	} else {
		n, err = strconv.ParseUint(ref[1:], 10, 32)
	}
	if err != nil {
		return "", false
	}

	return fmt.Sprintf("%c", rune(n)), true //nolint: gosec
}
