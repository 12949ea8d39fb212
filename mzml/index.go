package mzml

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/arloliu/mscompress/errs"
)

// Span is the byte range of one <spectrum> element, end tag included.
type Span struct {
	ID     string
	Offset int64
	End    int64
}

// Len returns the span length in bytes.
func (s Span) Len() int64 {
	return s.End - s.Offset
}

// Index records where every spectrum of a document lives.
type Index struct {
	Namespace     string
	DeclaredCount int
	Groups        ParamGroups
	Spans         []Span
	// Size is the number of bytes scanned, the document size.
	Size int64
}

// BuildIndex scans a whole document once, without decoding any array, and
// returns the byte range of each spectrum.
func BuildIndex(r io.Reader) (*Index, error) {
	s := NewScanner(r)
	idx := &Index{Groups: make(ParamGroups), DeclaredCount: -1}

	var (
		group   string
		current *Span
	)
	for {
		ev, err := s.Next()
		if errors.Is(err, io.EOF) {
			idx.Size = s.Offset()
			return idx, nil
		}
		if err != nil {
			return nil, err
		}

		if ev.Kind == EventEnd {
			switch ev.Name {
			case "referenceableParamGroup":
				group = ""
			case "spectrum":
				if current != nil {
					current.End = s.Offset()
					idx.Spans = append(idx.Spans, *current)
					current = nil
				}
			}

			continue
		}

		switch ev.Name {
		case "indexedmzML":
			if ns, ok := ev.Attr("xmlns"); ok && idx.Namespace == "" {
				idx.Namespace = ns
			}
		case "mzML":
			if ns, ok := ev.Attr("xmlns"); ok {
				idx.Namespace = ns
			}
		case "referenceableParamGroup":
			group, _ = ev.Attr("id")
			if _, ok := idx.Groups[group]; !ok {
				idx.Groups[group] = nil
			}
		case "cvParam":
			if group != "" {
				if acc, ok := ev.Attr("accession"); ok {
					idx.Groups[group] = append(idx.Groups[group], acc)
				}
			}
		case "spectrumList":
			if v, ok := ev.Attr("count"); ok {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return nil, errs.NewParseError(ev.Offset, "invalid spectrumList count %q", v)
				}
				idx.DeclaredCount = n
			}
		case "spectrum":
			id, _ := ev.Attr("id")
			current = &Span{ID: id, Offset: ev.Offset}
		}
	}
}

// File gives random access to the spectra of an mzML file.
//
// File is safe for concurrent use: every access reads through io.ReaderAt.
type File struct {
	f     *os.File
	path  string
	index *Index
}

// OpenFile opens path and builds its spectrum index.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	idx, err := BuildIndex(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("index %s: %w", path, err)
	}

	return &File{f: f, path: path, index: idx}, nil
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Index returns the spectrum index.
func (f *File) Index() *Index {
	return f.index
}

// Len returns the number of spectra.
func (f *File) Len() int {
	return len(f.index.Spans)
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return f.index.Size
}

// Span returns the byte range of spectrum i.
func (f *File) Span(i int) (Span, error) {
	if i < 0 || i >= len(f.index.Spans) {
		return Span{}, fmt.Errorf("%w: %d not in [0, %d)", errs.ErrIndexOutOfRange, i, len(f.index.Spans))
	}

	return f.index.Spans[i], nil
}

// Spectrum decodes spectrum i. The caller must Release it.
func (f *File) Spectrum(i int) (*Spectrum, error) {
	span, err := f.Span(i)
	if err != nil {
		return nil, err
	}

	dec, err := NewDecoder(io.NewSectionReader(f.f, span.Offset, span.Len()),
		WithParamGroups(f.index.Groups),
		WithFirstOrdinal(i),
		WithReadBufferSize(int(max(16, min(span.Len()+1, DefaultReadBufferSize)))),
	)
	if err != nil {
		return nil, err
	}

	defer dec.Close()

	sp, err := dec.Next()
	if errors.Is(err, io.EOF) {
		return nil, errs.NewParseError(span.Offset, "no spectrum in indexed range")
	}
	if err != nil {
		return nil, err
	}
	sp.Offset += span.Offset

	return sp, nil
}

// Raw returns the source bytes of spectrum i.
func (f *File) Raw(i int) ([]byte, error) {
	span, err := f.Span(i)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, span.Len())
	if _, err := f.f.ReadAt(buf, span.Offset); err != nil {
		return nil, err
	}

	return buf, nil
}

// Reader returns a reader over the whole document, independent of other readers.
func (f *File) Reader() io.Reader {
	return io.NewSectionReader(f.f, 0, f.index.Size)
}

// Close closes the file.
func (f *File) Close() error {
	return f.f.Close()
}
