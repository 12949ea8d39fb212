package container

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/arloliu/mscompress/encoding"
	"github.com/arloliu/mscompress/endian"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/section"
)

// Peak is one (m/z, intensity) pair.
type Peak struct {
	Mz        float64
	Intensity float64
}

// decodedArray holds one array of a spectrum, decoded on first use.
type decodedArray struct {
	once   sync.Once
	packed []byte
	values []float64
	err    error
}

// Spectrum is one spectrum read from a container.
//
// Accessors decode lazily and cache their result, so repeated calls are
// cheap and a Spectrum may be shared between goroutines. Returned slices are
// shared with the cache and must not be modified.
type Spectrum struct {
	Ordinal int

	r        *Reader
	entry    section.DivisionEntry
	meta     []byte
	mzBlock  []byte
	intBlock []byte

	mz        decodedArray
	intensity decodedArray

	fragOnce sync.Once
	frag     section.Fragment
	fragErr  error
}

// Size returns the number of peaks.
func (s *Spectrum) Size() int {
	return int(s.entry.ArrayLength)
}

// MzSource returns how the m/z array was encoded in the source document.
func (s *Spectrum) MzSource() section.ArraySource {
	return s.entry.MzSource
}

// IntensitySource returns how the intensity array was encoded in the source document.
func (s *Spectrum) IntensitySource() section.ArraySource {
	return s.entry.IntSource
}

// Mz returns the m/z values.
func (s *Spectrum) Mz() ([]float64, error) {
	a := s.mzArray()
	return a.values, a.err
}

// Intensity returns the intensity values.
func (s *Spectrum) Intensity() ([]float64, error) {
	a := s.intensityArray()
	return a.values, a.err
}

// MzBinary returns the m/z array as packed little-endian floats of the
// source width.
func (s *Spectrum) MzBinary() ([]byte, error) {
	a := s.mzArray()
	return a.packed, a.err
}

// IntensityBinary returns the intensity array as packed little-endian floats
// of the source width.
func (s *Spectrum) IntensityBinary() ([]byte, error) {
	a := s.intensityArray()
	return a.packed, a.err
}

// Peaks returns the paired m/z and intensity values.
func (s *Spectrum) Peaks() ([]Peak, error) {
	mz, err := s.Mz()
	if err != nil {
		return nil, err
	}
	intensity, err := s.Intensity()
	if err != nil {
		return nil, err
	}

	peaks := make([]Peak, len(mz))
	for i := range mz {
		peaks[i] = Peak{Mz: mz[i], Intensity: intensity[i]}
	}

	return peaks, nil
}

// XML returns the spectrum element as it appears in the restored document,
// from its start tag through </spectrum>.
func (s *Spectrum) XML() ([]byte, error) {
	out, err := s.AppendSource(nil)
	if err != nil {
		return nil, err
	}
	frag, _ := s.fragment()

	return out[frag.Start:], nil
}

// AppendSource appends the spectrum's slice of the restored document to dst:
// the element itself and any text preceding it since the previous spectrum.
func (s *Spectrum) AppendSource(dst []byte) ([]byte, error) {
	frag, err := s.fragment()
	if err != nil {
		return dst, err
	}

	mz := s.mzArray()
	if mz.err != nil {
		return dst, mz.err
	}
	intensity := s.intensityArray()
	if intensity.err != nil {
		return dst, intensity.err
	}

	mzText, err := encoding.EncodeRaw(nil, mz.packed, descriptor(s.entry.MzSource))
	if err != nil {
		return dst, s.wrap("m/z", err)
	}
	intText, err := encoding.EncodeRaw(nil, intensity.packed, descriptor(s.entry.IntSource))
	if err != nil {
		return dst, s.wrap("intensity", err)
	}

	var fill section.Fill
	fill.Set(section.HoleMzBinary, mzText)
	fill.Set(section.HoleIntensityBinary, intText)
	fill.Set(section.HoleMzEncodedLength, strconv.AppendInt(nil, int64(len(mzText)), 10))
	fill.Set(section.HoleIntensityEncodedLength, strconv.AppendInt(nil, int64(len(intText)), 10))

	return frag.AppendSpliced(dst, &fill), nil
}

func descriptor(src section.ArraySource) encoding.Descriptor {
	return encoding.Descriptor{Compression: src.Compression, Width: src.Width}
}

func (s *Spectrum) fragment() (section.Fragment, error) {
	s.fragOnce.Do(func() {
		data, err := s.r.metaCodec.Decompress(s.meta)
		if err != nil {
			s.fragErr = s.wrap("metadata", err)
			return
		}
		if s.frag, err = section.ParseFragment(data); err != nil {
			s.fragErr = s.wrap("metadata", err)
		}
	})

	return s.frag, s.fragErr
}

func (s *Spectrum) mzArray() *decodedArray {
	s.mz.once.Do(func() {
		s.decode(&s.mz, "m/z", s.mzBlock, s.r.mz, s.entry.MzSource)
	})

	return &s.mz
}

func (s *Spectrum) intensityArray() *decodedArray {
	s.intensity.once.Do(func() {
		s.decode(&s.intensity, "intensity", s.intBlock, s.r.intensity, s.entry.IntSource)
	})

	return &s.intensity
}

func (s *Spectrum) decode(a *decodedArray, what string, block []byte, t encoding.Transform, src section.ArraySource) {
	payload, err := s.r.arrayCodec.Decompress(block)
	if err != nil {
		a.err = s.wrap(what, err)
		return
	}

	if a.packed, err = t.DecodeRaw(nil, payload, src.Width); err != nil {
		a.err = s.wrap(what, err)
		return
	}
	if a.values, err = endian.ReadFloats(le, a.packed, src.Width, make([]float64, 0, s.Size())); err != nil {
		a.err = s.wrap(what, err)
		return
	}

	if len(a.values) != s.Size() {
		a.err = s.wrap(what, fmt.Errorf("decoded %d values, division records %d", len(a.values), s.Size()))
	}
}

func (s *Spectrum) wrap(what string, err error) error {
	return fmt.Errorf("%w: spectrum %d %s block: %w", errs.ErrContainerIntegrity, s.Ordinal, what, err)
}

var le = endian.GetLittleEndianEngine()
