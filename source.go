package mscompress

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/arloliu/mscompress/container"
	"github.com/arloliu/mscompress/convert"
	"github.com/arloliu/mscompress/encoding"
	"github.com/arloliu/mscompress/endian"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/mzml"
)

// SourceFile is an opened mzML run.
type SourceFile struct {
	f *mzml.File
}

var _ File = (*SourceFile)(nil)

// OpenSource opens the mzML file at path and indexes its spectra.
func OpenSource(path string) (*SourceFile, error) {
	f, err := mzml.OpenFile(path)
	if err != nil {
		return nil, err
	}

	return &SourceFile{f: f}, nil
}

// Kind returns format.KindSource.
func (s *SourceFile) Kind() format.FileKind {
	return format.KindSource
}

// Path returns the file path.
func (s *SourceFile) Path() string {
	return s.f.Path()
}

// Describe summarizes the run from its index.
func (s *SourceFile) Describe() Description {
	idx := s.f.Index()
	src := &SourceDescription{
		DeclaredCount: idx.DeclaredCount,
		ParamGroups:   len(idx.Groups),
	}
	if n := len(idx.Spans); n > 0 {
		src.FirstOffset = idx.Spans[0].Offset
		src.LastOffset = idx.Spans[n-1].Offset
	}

	return Description{
		Kind:          format.KindSource.String(),
		Path:          s.f.Path(),
		FileSize:      s.f.Size(),
		SpectrumCount: s.f.Len(),
		Namespace:     idx.Namespace,
		Source:        src,
	}
}

// Len returns the number of spectra.
func (s *SourceFile) Len() int {
	return s.f.Len()
}

// Spectrum returns spectrum i.
func (s *SourceFile) Spectrum(i int) (Spectrum, error) {
	if _, err := s.f.Span(i); err != nil {
		return nil, err
	}

	return &sourceSpectrum{f: s.f, ordinal: i}, nil
}

// Spectra iterates over every spectrum.
func (s *SourceFile) Spectra() iter.Seq2[int, Spectrum] {
	return func(yield func(int, Spectrum) bool) {
		for i := range s.f.Len() {
			if !yield(i, &sourceSpectrum{f: s.f, ordinal: i}) {
				return
			}
		}
	}
}

// MzBinary returns the m/z array of spectrum i as packed little-endian floats.
func (s *SourceFile) MzBinary(i int) ([]byte, error) {
	sp, err := s.Spectrum(i)
	if err != nil {
		return nil, err
	}

	return sp.MzBinary()
}

// IntensityBinary returns the intensity array of spectrum i as packed
// little-endian floats.
func (s *SourceFile) IntensityBinary(i int) ([]byte, error) {
	sp, err := s.Spectrum(i)
	if err != nil {
		return nil, err
	}

	return sp.IntensityBinary()
}

// XML returns the source bytes of spectrum i.
func (s *SourceFile) XML(i int) ([]byte, error) {
	return s.f.Raw(i)
}

// Compress converts the run into a container at dst.
func (s *SourceFile) Compress(ctx context.Context, dst string, opts ...convert.Option) (convert.Stats, error) {
	return convert.CompressFile(ctx, s.f.Path(), dst, opts...)
}

// Decompress is not supported for mzML files.
func (s *SourceFile) Decompress(context.Context, string, ...convert.Option) (convert.Stats, error) {
	return convert.Stats{}, fmt.Errorf("%w: decompress on an mzML file", errs.ErrNotImplemented)
}

// Close closes the file.
func (s *SourceFile) Close() error {
	return s.f.Close()
}

type sourceArray struct {
	packed []byte
	values []float64
}

// sourceSpectrum decodes a spectrum of an mzML file on first access.
type sourceSpectrum struct {
	f       *mzml.File
	ordinal int

	once      sync.Once
	mz        sourceArray
	intensity sourceArray
	err       error
}

func (s *sourceSpectrum) load() error {
	s.once.Do(func() {
		sp, err := s.f.Spectrum(s.ordinal)
		if err != nil {
			s.err = err
			return
		}
		defer sp.Release()

		if s.mz, err = decodeSourceArray(&sp.Mz); err != nil {
			s.err = fmt.Errorf("spectrum %d m/z array: %w", s.ordinal, err)
			return
		}
		if s.intensity, err = decodeSourceArray(&sp.Intensity); err != nil {
			s.err = fmt.Errorf("spectrum %d intensity array: %w", s.ordinal, err)
			return
		}
		if len(s.mz.values) != len(s.intensity.values) {
			s.err = fmt.Errorf("%w: spectrum %d has %d m/z values and %d intensities",
				errs.ErrMalformedArray, s.ordinal, len(s.mz.values), len(s.intensity.values))
		}
	})

	return s.err
}

func decodeSourceArray(raw *mzml.RawArray) (sourceArray, error) {
	packed, err := encoding.DecodeRaw(nil, raw.Text, raw.Desc)
	if err != nil {
		return sourceArray{}, err
	}

	values, err := endian.ReadFloats(raw.Desc.ByteOrder(), packed, raw.Desc.Width, make([]float64, 0, len(packed)/raw.Desc.Width.Bytes()))
	if err != nil {
		return sourceArray{}, err
	}

	return sourceArray{packed: packed, values: values}, nil
}

func (s *sourceSpectrum) Ordinal() int {
	return s.ordinal
}

func (s *sourceSpectrum) Size() (int, error) {
	if err := s.load(); err != nil {
		return 0, err
	}

	return len(s.mz.values), nil
}

func (s *sourceSpectrum) Mz() ([]float64, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	return s.mz.values, nil
}

func (s *sourceSpectrum) Intensity() ([]float64, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	return s.intensity.values, nil
}

func (s *sourceSpectrum) Peaks() ([]Peak, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	return pairPeaks(s.mz.values, s.intensity.values), nil
}

func (s *sourceSpectrum) MzBinary() ([]byte, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	return s.mz.packed, nil
}

func (s *sourceSpectrum) IntensityBinary() ([]byte, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	return s.intensity.packed, nil
}

func (s *sourceSpectrum) XML() ([]byte, error) {
	return s.f.Raw(s.ordinal)
}

func pairPeaks(mz []float64, intensity []float64) []container.Peak {
	peaks := make([]container.Peak, len(mz))
	for i := range mz {
		peaks[i] = container.Peak{Mz: mz[i], Intensity: intensity[i]}
	}

	return peaks
}
