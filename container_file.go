package mscompress

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/arloliu/mscompress/container"
	"github.com/arloliu/mscompress/convert"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

// ContainerFile is an opened msz container.
type ContainerFile struct {
	r *container.Reader
}

var _ File = (*ContainerFile)(nil)

// OpenContainer opens the msz container at path.
func OpenContainer(path string, opts ...container.ReaderOption) (*ContainerFile, error) {
	r, err := container.Open(path, opts...)
	if err != nil {
		return nil, err
	}

	return &ContainerFile{r: r}, nil
}

// Reader returns the underlying container reader.
func (c *ContainerFile) Reader() *container.Reader {
	return c.r
}

// Kind returns format.KindContainer.
func (c *ContainerFile) Kind() format.FileKind {
	return format.KindContainer
}

// Path returns the file path.
func (c *ContainerFile) Path() string {
	return c.r.Path()
}

// Describe summarizes the container from its header and Division.
func (c *ContainerFile) Describe() Description {
	d := c.r.Describe()

	return Description{
		Kind:          format.KindContainer.String(),
		Path:          d.Path,
		FileSize:      d.FileSize,
		SpectrumCount: d.SpectrumCount,
		Namespace:     d.Namespace,
		Container:     &d,
	}
}

// Len returns the number of spectra.
func (c *ContainerFile) Len() int {
	return c.r.Len()
}

// Spectrum returns spectrum i.
func (c *ContainerFile) Spectrum(i int) (Spectrum, error) {
	sp, err := c.r.Spectrum(i)
	if err != nil {
		return nil, err
	}

	return &containerSpectrum{r: c.r, ordinal: i, sp: sp}, nil
}

// Spectra iterates over every spectrum.
func (c *ContainerFile) Spectra() iter.Seq2[int, Spectrum] {
	return func(yield func(int, Spectrum) bool) {
		for i := range c.r.Len() {
			if !yield(i, &containerSpectrum{r: c.r, ordinal: i}) {
				return
			}
		}
	}
}

// MzBinary returns the m/z array of spectrum i as packed little-endian floats
// of the source width.
func (c *ContainerFile) MzBinary(i int) ([]byte, error) {
	sp, err := c.r.Spectrum(i)
	if err != nil {
		return nil, err
	}

	return sp.MzBinary()
}

// IntensityBinary returns the intensity array of spectrum i as packed
// little-endian floats of the source width.
func (c *ContainerFile) IntensityBinary(i int) ([]byte, error) {
	sp, err := c.r.Spectrum(i)
	if err != nil {
		return nil, err
	}

	return sp.IntensityBinary()
}

// XML returns spectrum i as it appears in the restored document.
func (c *ContainerFile) XML(i int) ([]byte, error) {
	sp, err := c.r.Spectrum(i)
	if err != nil {
		return nil, err
	}

	return sp.XML()
}

// Compress is not supported for containers.
func (c *ContainerFile) Compress(context.Context, string, ...convert.Option) (convert.Stats, error) {
	return convert.Stats{}, fmt.Errorf("%w: compress on an msz container", errs.ErrNotImplemented)
}

// Decompress restores the container into an mzML file at dst.
func (c *ContainerFile) Decompress(ctx context.Context, dst string, opts ...convert.Option) (convert.Stats, error) {
	return convert.DecompressFile(ctx, c.r.Path(), dst, opts...)
}

// Close closes the container.
func (c *ContainerFile) Close() error {
	return c.r.Close()
}

// containerSpectrum reads its blocks on first access when produced by Spectra.
type containerSpectrum struct {
	r       *container.Reader
	ordinal int

	once sync.Once
	sp   *container.Spectrum
	err  error
}

func (s *containerSpectrum) load() (*container.Spectrum, error) {
	s.once.Do(func() {
		if s.sp == nil {
			s.sp, s.err = s.r.Spectrum(s.ordinal)
		}
	})

	return s.sp, s.err
}

func (s *containerSpectrum) Ordinal() int {
	return s.ordinal
}

func (s *containerSpectrum) Size() (int, error) {
	sp, err := s.load()
	if err != nil {
		return 0, err
	}

	return sp.Size(), nil
}

func (s *containerSpectrum) Mz() ([]float64, error) {
	sp, err := s.load()
	if err != nil {
		return nil, err
	}

	return sp.Mz()
}

func (s *containerSpectrum) Intensity() ([]float64, error) {
	sp, err := s.load()
	if err != nil {
		return nil, err
	}

	return sp.Intensity()
}

func (s *containerSpectrum) Peaks() ([]Peak, error) {
	sp, err := s.load()
	if err != nil {
		return nil, err
	}

	return sp.Peaks()
}

func (s *containerSpectrum) MzBinary() ([]byte, error) {
	sp, err := s.load()
	if err != nil {
		return nil, err
	}

	return sp.MzBinary()
}

func (s *containerSpectrum) IntensityBinary() ([]byte, error) {
	sp, err := s.load()
	if err != nil {
		return nil, err
	}

	return sp.IntensityBinary()
}

func (s *containerSpectrum) XML() ([]byte, error) {
	sp, err := s.load()
	if err != nil {
		return nil, err
	}

	return sp.XML()
}
