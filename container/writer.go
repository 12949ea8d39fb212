package container

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/internal/hash"
	"github.com/arloliu/mscompress/internal/options"
	"github.com/arloliu/mscompress/section"
)

type writerState uint8

const (
	stateOpen writerState = iota
	stateBody
	stateTail
	stateFinished
	stateClosed
)

// Writer assembles a container: header, prologue block, three blocks per
// spectrum, epilogue block, Division and footer.
//
// A Writer is not safe for concurrent use. The conversion pipeline calls it
// from the single goroutine that owns the output.
type Writer struct {
	cfg    *WriterConfig
	dst    io.WriteSeeker
	bw     *bufio.Writer
	enc    *Encoder
	header *section.Header
	div    section.Division
	offset uint64
	prefix []byte
	state  writerState

	// set by Create
	file    *os.File
	path    string
	tmpPath string
}

// NewWriter creates a Writer over dst and writes a placeholder header.
//
// The header is rewritten by Finish, so dst must support seeking back to its
// start.
func NewWriter(dst io.WriteSeeker, df section.DataFormat, opts ...WriterOption) (*Writer, error) {
	cfg := newWriterConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	enc, err := NewEncoder(df)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		cfg:    cfg,
		dst:    dst,
		bw:     bufio.NewWriterSize(dst, cfg.bufferSize),
		enc:    enc,
		header: section.NewHeader(df),
		prefix: make([]byte, 0, section.BlockPrefixSize),
	}
	if err := w.write(w.header.Bytes()); err != nil {
		return nil, err
	}

	return w, nil
}

// Create creates a Writer for a container at path.
//
// Data goes to a temporary file in the same directory; Close renames it into
// place once Finish has succeeded and removes it otherwise.
func Create(path string, df section.DataFormat, opts ...WriterOption) (*Writer, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, err
	}

	w, err := NewWriter(f, df, opts...)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())

		return nil, err
	}
	w.file = f
	w.path = path
	w.tmpPath = f.Name()

	return w, nil
}

// Path returns the final path of a Writer made by Create.
func (w *Writer) Path() string {
	return w.path
}

// Encoder returns the writer's block encoder.
func (w *Writer) Encoder() *Encoder {
	return w.enc
}

// Len returns the number of spectra written so far.
func (w *Writer) Len() int {
	return len(w.div.Entries)
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() uint64 {
	return w.offset
}

// SetSourceInfo records the source document name, its XML namespace and its
// size in bytes in the Division.
func (w *Writer) SetSourceInfo(name string, namespace string, size uint64) error {
	if w.state >= stateFinished {
		return errs.ErrWriterClosed
	}
	if len(name) > section.MaxNameLength || len(namespace) > section.MaxNameLength {
		return fmt.Errorf("%w: source name or namespace longer than %d bytes", errs.ErrWriterState, section.MaxNameLength)
	}

	w.div.SourceName = name
	w.div.Namespace = namespace
	w.div.SourceSize = size

	return nil
}

// WritePrologue writes the document text preceding the first spectrum. It
// must be called exactly once, before any spectrum.
func (w *Writer) WritePrologue(data []byte) error {
	if err := w.expect(stateOpen); err != nil {
		return err
	}

	ref, err := w.writeMeta(data)
	if err != nil {
		return err
	}
	w.div.Prologue = ref
	w.state = stateBody

	return nil
}

// WriteSpectrum appends the blocks of one encoded spectrum. Spectra must be
// written in ascending, contiguous ordinal order starting at zero.
func (w *Writer) WriteSpectrum(es *EncodedSpectrum) error {
	if err := w.expect(stateBody); err != nil {
		return err
	}
	if es.Ordinal != len(w.div.Entries) {
		return fmt.Errorf("%w: spectrum %d written after %d spectra", errs.ErrWriterState, es.Ordinal, len(w.div.Entries))
	}

	// the header summarizes the source encoding of the first spectrum
	if es.Ordinal == 0 {
		w.header.Format.SourceCompression = es.MzSource.Compression
		w.header.Format.MzWidth = es.MzSource.Width
		w.header.Format.IntensityWidth = es.IntSource.Width
	}

	entry := section.DivisionEntry{
		ArrayLength: es.ArrayLength,
		MzSource:    es.MzSource,
		IntSource:   es.IntSource,
	}

	var err error
	if entry.Meta, err = w.writeBlock(es.Meta); err != nil {
		return err
	}
	if entry.Mz, err = w.writeBlock(es.Mz); err != nil {
		return err
	}
	if entry.Intensity, err = w.writeBlock(es.Intensity); err != nil {
		return err
	}
	w.div.Entries = append(w.div.Entries, entry)

	return nil
}

// WriteEpilogue writes the document text following the last spectrum.
func (w *Writer) WriteEpilogue(data []byte) error {
	if err := w.expect(stateBody); err != nil {
		return err
	}

	ref, err := w.writeMeta(data)
	if err != nil {
		return err
	}
	w.div.Epilogue = ref
	w.state = stateTail

	return nil
}

// Finish writes the Division and footer, then patches the header with the
// spectrum count and the Division location and checksum.
func (w *Writer) Finish() error {
	if err := w.expect(stateTail); err != nil {
		return err
	}

	div, err := w.div.Bytes()
	if err != nil {
		return err
	}

	w.header.SpectrumCount = uint64(len(w.div.Entries))
	w.header.DivisionOffset = w.offset
	w.header.DivisionLength = uint64(len(div))
	w.header.DivisionChecksum = hash.Checksum32(div)

	if err := w.write(div); err != nil {
		return err
	}
	if err := w.write(section.Footer{DivisionOffset: w.header.DivisionOffset}.Bytes()); err != nil {
		return err
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}

	if _, err := w.dst.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.dst.Write(w.header.Bytes()); err != nil {
		return err
	}
	if _, err := w.dst.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	w.state = stateFinished
	w.cfg.logger.Debug("container finished",
		"spectra", len(w.div.Entries),
		"bytes", w.offset,
		"division_offset", w.header.DivisionOffset,
	)

	return nil
}

// Close releases the writer. A Writer made by Create renames its temporary
// file into place if Finish succeeded and removes it otherwise.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	if w.state != stateFinished {
		return w.Abort()
	}
	w.state = stateClosed

	if w.file == nil {
		return nil
	}

	err := w.file.Sync()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(w.tmpPath, w.path)
	}
	if err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}

	return nil
}

// Abort discards the container. A Writer made by Create removes its
// temporary file.
func (w *Writer) Abort() error {
	if w.state == stateClosed {
		return nil
	}
	w.state = stateClosed

	if w.file == nil {
		return nil
	}

	cerr := w.file.Close()
	rerr := os.Remove(w.tmpPath)
	if rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		return rerr
	}
	if cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return cerr
	}

	return nil
}

func (w *Writer) expect(state writerState) error {
	switch {
	case w.state >= stateFinished:
		return errs.ErrWriterClosed
	case w.state != state:
		return fmt.Errorf("%w: operation not allowed in state %d", errs.ErrWriterState, w.state)
	default:
		return nil
	}
}

func (w *Writer) writeMeta(data []byte) (section.BlockRef, error) {
	payload, err := w.enc.CompressMeta(data)
	if err != nil {
		return section.BlockRef{}, err
	}

	return w.writeBlock(payload)
}

func (w *Writer) writeBlock(payload []byte) (section.BlockRef, error) {
	var err error
	w.prefix, err = section.AppendBlockPrefix(w.prefix[:0], payload)
	if err != nil {
		return section.BlockRef{}, err
	}

	ref := section.BlockRef{Offset: w.offset, Length: uint64(len(w.prefix) + len(payload))}
	if err := w.write(w.prefix); err != nil {
		return section.BlockRef{}, err
	}
	if err := w.write(payload); err != nil {
		return section.BlockRef{}, err
	}

	return ref, nil
}

func (w *Writer) write(data []byte) error {
	n, err := w.bw.Write(data)
	w.offset += uint64(n) //nolint: gosec
	if err != nil {
		return fmt.Errorf("write container: %w", err)
	}

	return nil
}
