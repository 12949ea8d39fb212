package container

import (
	"errors"
	"fmt"
	"io"
	"iter"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arloliu/mscompress/compress"
	"github.com/arloliu/mscompress/encoding"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/hash"
	"github.com/arloliu/mscompress/internal/mmap"
	"github.com/arloliu/mscompress/internal/options"
	"github.com/arloliu/mscompress/section"
)

// Reader gives random access to the spectra of a finalized container.
//
// Opening validates the header, footer and Division; spectrum blocks are read
// and verified only when a spectrum is requested. A Reader is safe for
// concurrent use.
type Reader struct {
	cfg    *ReaderConfig
	ra     io.ReaderAt
	closer io.Closer
	path   string
	size   int64
	header section.Header
	div    *section.Division

	metaCodec  compress.Codec
	arrayCodec compress.Codec
	mz         encoding.Transform
	intensity  encoding.Transform

	cache *lru.Cache[int, *Spectrum]
}

// Open opens the container at path.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	cfg := newReaderConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	var (
		f   *mmap.File
		err error
	)
	if cfg.noMmap {
		f, err = mmap.OpenNoMap(path)
	} else {
		f, err = mmap.Open(path)
	}
	if err != nil {
		return nil, err
	}

	r, err := newReader(f, f.Size(), cfg)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	r.path = path
	cfg.logger.Debug("container opened", "path", path, "size", r.size, "spectra", r.Len(), "mapped", f.Mapped())

	return r, nil
}

// NewReader creates a Reader over size bytes of ra.
func NewReader(ra io.ReaderAt, size int64, opts ...ReaderOption) (*Reader, error) {
	cfg := newReaderConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return newReader(ra, size, cfg)
}

func newReader(ra io.ReaderAt, size int64, cfg *ReaderConfig) (*Reader, error) {
	r := &Reader{cfg: cfg, ra: ra, size: size}
	if err := r.load(); err != nil {
		return nil, err
	}

	df := r.header.Format
	var err error
	if r.metaCodec, err = compress.GetCodec(df.MetaCompression); err != nil {
		return nil, integrityError(err)
	}
	if r.arrayCodec, err = compress.GetCodec(df.ArrayCompression); err != nil {
		return nil, integrityError(err)
	}
	r.mz = encoding.NewTransform(format.RoleMz, df.MzTransform, df.MzTolerance)
	r.intensity = encoding.NewTransform(format.RoleIntensity, df.IntensityTransform, df.IntensityTolerance)

	if cfg.cacheSize > 0 {
		if r.cache, err = lru.New[int, *Spectrum](cfg.cacheSize); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func integrityError(err error) error {
	if errors.Is(err, errs.ErrContainerIntegrity) {
		return err
	}

	return fmt.Errorf("%w: %w", errs.ErrContainerIntegrity, err)
}

func (r *Reader) load() error {
	if r.size < section.HeaderSize+section.FooterSize {
		return fmt.Errorf("%w: file of %d bytes is too short", errs.ErrContainerIntegrity, r.size)
	}

	head, err := r.readAt(0, section.HeaderSize)
	if err != nil {
		return err
	}
	if r.header, err = section.ParseHeader(head); err != nil {
		return integrityError(err)
	}

	tail, err := r.readAt(uint64(r.size-section.FooterSize), section.FooterSize)
	if err != nil {
		return err
	}
	footer, err := section.ParseFooter(tail)
	if err != nil {
		return err
	}

	h := &r.header
	if footer.DivisionOffset != h.DivisionOffset {
		return fmt.Errorf("%w: footer points at offset %d, header at %d", errs.ErrContainerIntegrity, footer.DivisionOffset, h.DivisionOffset)
	}
	if h.DivisionOffset < section.HeaderSize || h.DivisionLength > uint64(r.size) ||
		h.DivisionOffset+h.DivisionLength+section.FooterSize != uint64(r.size) {
		return fmt.Errorf("%w: division [%d, +%d) does not end at the footer of a %d byte file",
			errs.ErrContainerIntegrity, h.DivisionOffset, h.DivisionLength, r.size)
	}

	data, err := r.readAt(h.DivisionOffset, h.DivisionLength)
	if err != nil {
		return err
	}
	if got := hash.Checksum32(data); got != h.DivisionChecksum {
		return fmt.Errorf("%w: %w: division stores 0x%08x, computed 0x%08x",
			errs.ErrContainerIntegrity, errs.ErrChecksumMismatch, h.DivisionChecksum, got)
	}

	if r.div, err = section.ParseDivision(data); err != nil {
		return integrityError(err)
	}
	if uint64(len(r.div.Entries)) != h.SpectrumCount {
		return fmt.Errorf("%w: header counts %d spectra, division %d", errs.ErrContainerIntegrity, h.SpectrumCount, len(r.div.Entries))
	}
	if err := r.div.Validate(h.DivisionOffset); err != nil {
		return integrityError(err)
	}

	return nil
}

func (r *Reader) readAt(offset uint64, length uint64) ([]byte, error) {
	if offset+length < offset || offset+length > uint64(r.size) {
		return nil, fmt.Errorf("%w: range [%d, +%d) outside a %d byte file", errs.ErrContainerIntegrity, offset, length, r.size)
	}

	buf := make([]byte, length)
	n, err := r.ra.ReadAt(buf, int64(offset)) //nolint: gosec
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	return nil, fmt.Errorf("%w: read [%d, +%d): %w", errs.ErrContainerIntegrity, offset, length, err)
}

func (r *Reader) readBlock(ref section.BlockRef) ([]byte, error) {
	data, err := r.readAt(ref.Offset, ref.Length)
	if err != nil {
		return nil, err
	}

	return section.ParseBlock(data)
}

func (r *Reader) readMeta(ref section.BlockRef, what string) ([]byte, error) {
	payload, err := r.readBlock(ref)
	if err != nil {
		return nil, fmt.Errorf("%s block: %w", what, err)
	}

	data, err := r.metaCodec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s block: %w", errs.ErrContainerIntegrity, what, err)
	}

	return data, nil
}

// Path returns the path passed to Open, or "" for a Reader made by NewReader.
func (r *Reader) Path() string {
	return r.path
}

// Size returns the container size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Header returns the parsed header.
func (r *Reader) Header() section.Header {
	return r.header
}

// Format returns the container's DataFormat.
func (r *Reader) Format() section.DataFormat {
	return r.header.Format
}

// Division returns the parsed Division. Callers must not modify it.
func (r *Reader) Division() *section.Division {
	return r.div
}

// Len returns the number of spectra.
func (r *Reader) Len() int {
	return len(r.div.Entries)
}

// Prologue returns the document text preceding the first spectrum.
func (r *Reader) Prologue() ([]byte, error) {
	return r.readMeta(r.div.Prologue, "prologue")
}

// Epilogue returns the document text following the last spectrum.
func (r *Reader) Epilogue() ([]byte, error) {
	return r.readMeta(r.div.Epilogue, "epilogue")
}

// Spectrum returns spectrum i.
//
// The spectrum's three blocks are read and their checksums verified; arrays
// and markup are decoded on first access. Errors are scoped to the spectrum:
// a corrupt block does not affect access to other spectra.
func (r *Reader) Spectrum(i int) (*Spectrum, error) {
	if i < 0 || i >= len(r.div.Entries) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", errs.ErrIndexOutOfRange, i, len(r.div.Entries))
	}

	if r.cache != nil {
		if sp, ok := r.cache.Get(i); ok {
			return sp, nil
		}
	}

	entry := r.div.Entries[i]
	sp := &Spectrum{Ordinal: i, entry: entry, r: r}

	var err error
	if sp.meta, err = r.readBlock(entry.Meta); err != nil {
		return nil, fmt.Errorf("spectrum %d metadata block: %w", i, err)
	}
	if sp.mzBlock, err = r.readBlock(entry.Mz); err != nil {
		return nil, fmt.Errorf("spectrum %d m/z block: %w", i, err)
	}
	if sp.intBlock, err = r.readBlock(entry.Intensity); err != nil {
		return nil, fmt.Errorf("spectrum %d intensity block: %w", i, err)
	}

	if r.cache != nil {
		r.cache.Add(i, sp)
	}

	return sp, nil
}

// All iterates over every spectrum in ordinal order. Iteration continues past
// per-spectrum errors; the consumer decides whether to stop.
func (r *Reader) All() iter.Seq2[*Spectrum, error] {
	return func(yield func(*Spectrum, error) bool) {
		for i := range r.div.Entries {
			if !yield(r.Spectrum(i)) {
				return
			}
		}
	}
}

// Close releases the underlying file of a Reader made by Open.
func (r *Reader) Close() error {
	if r.cache != nil {
		r.cache.Purge()
	}
	if r.closer == nil {
		return nil
	}

	err := r.closer.Close()
	r.closer = nil

	return err
}
