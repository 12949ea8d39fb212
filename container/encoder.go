package container

import (
	"fmt"

	"github.com/arloliu/mscompress/compress"
	"github.com/arloliu/mscompress/encoding"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/pool"
	"github.com/arloliu/mscompress/mzml"
	"github.com/arloliu/mscompress/section"
)

// EncodedSpectrum holds the three compressed block payloads of one spectrum.
type EncodedSpectrum struct {
	Ordinal     int
	Meta        []byte
	Mz          []byte
	Intensity   []byte
	ArrayLength uint32
	MzSource    section.ArraySource
	IntSource   section.ArraySource
	// SourceBytes is the size of the spectrum's markup and payload text in
	// the source document.
	SourceBytes int
}

// EncodedBytes returns the total payload size.
func (es *EncodedSpectrum) EncodedBytes() int {
	return len(es.Meta) + len(es.Mz) + len(es.Intensity)
}

// Encoder turns decoded spectra into container blocks for one DataFormat.
//
// Encoder is safe for concurrent use; conversion workers share one.
type Encoder struct {
	df         section.DataFormat
	metaCodec  compress.Codec
	arrayCodec compress.Codec
	mz         encoding.Transform
	intensity  encoding.Transform
}

// NewEncoder creates an Encoder for df.
func NewEncoder(df section.DataFormat) (*Encoder, error) {
	if err := df.Validate(); err != nil {
		return nil, err
	}

	arrayCodec, err := compress.CreateCodec(df.ArrayCompression, int(df.ZstdLevel), "array")
	if err != nil {
		return nil, err
	}
	metaCodec, err := compress.CreateCodec(df.MetaCompression, int(df.ZstdLevel), "metadata")
	if err != nil {
		return nil, err
	}

	return &Encoder{
		df:         df,
		metaCodec:  metaCodec,
		arrayCodec: arrayCodec,
		mz:         encoding.NewTransform(format.RoleMz, df.MzTransform, df.MzTolerance),
		intensity:  encoding.NewTransform(format.RoleIntensity, df.IntensityTransform, df.IntensityTolerance),
	}, nil
}

// Format returns the encoder's DataFormat.
func (e *Encoder) Format() section.DataFormat {
	return e.df
}

// CompressMeta compresses a prologue, epilogue or fragment payload.
func (e *Encoder) CompressMeta(data []byte) ([]byte, error) {
	out, err := e.metaCodec.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncoding, err)
	}

	return out, nil
}

// Encode decodes both arrays of sp, checks their lengths, applies the
// configured transforms and compresses the three blocks.
//
// Every failure is returned as an *errs.EncodingError carrying sp.Ordinal.
func (e *Encoder) Encode(sp *mzml.Spectrum) (*EncodedSpectrum, error) {
	es, err := e.encode(sp)
	if err != nil {
		return nil, errs.NewEncodingError(sp.Ordinal, err)
	}

	return es, nil
}

func (e *Encoder) encode(sp *mzml.Spectrum) (*EncodedSpectrum, error) {
	scratch := pool.GetScratch()
	defer pool.PutScratch(scratch)

	mzPacked, err := encoding.DecodeRaw(scratch.B[:0], sp.Mz.Text, sp.Mz.Desc)
	if err != nil {
		return nil, fmt.Errorf("m/z array: %w", err)
	}
	mzLen := len(mzPacked)
	both, err := encoding.DecodeRaw(mzPacked, sp.Intensity.Text, sp.Intensity.Desc)
	if err != nil {
		return nil, fmt.Errorf("intensity array: %w", err)
	}
	scratch.B = both
	mzPacked, intPacked := both[:mzLen], both[mzLen:]

	n := len(mzPacked) / sp.Mz.Desc.Width.Bytes()
	if err := checkLengths(sp, n, len(intPacked)/sp.Intensity.Desc.Width.Bytes()); err != nil {
		return nil, err
	}

	es := &EncodedSpectrum{
		Ordinal:     sp.Ordinal,
		ArrayLength: uint32(n), //nolint: gosec
		MzSource:    section.ArraySource{Compression: sp.Mz.Desc.Compression, Width: sp.Mz.Desc.Width},
		IntSource:   section.ArraySource{Compression: sp.Intensity.Desc.Compression, Width: sp.Intensity.Desc.Width},
		SourceBytes: len(sp.Fragment.Text) + len(sp.Mz.Text) + len(sp.Intensity.Text),
	}

	if es.Mz, err = e.encodeArray(e.mz, mzPacked, sp.Mz.Desc.Width); err != nil {
		return nil, fmt.Errorf("m/z array: %w", err)
	}
	if es.Intensity, err = e.encodeArray(e.intensity, intPacked, sp.Intensity.Desc.Width); err != nil {
		return nil, fmt.Errorf("intensity array: %w", err)
	}

	if es.Meta, err = e.CompressMeta(sp.Fragment.AppendTo(nil)); err != nil {
		return nil, err
	}

	return es, nil
}

func (e *Encoder) encodeArray(t encoding.Transform, packed []byte, width format.ElementWidth) ([]byte, error) {
	payload, err := t.Encode(make([]byte, 0, len(packed)), packed, width)
	if err != nil {
		return nil, err
	}

	out, err := e.arrayCodec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncoding, err)
	}

	return out, nil
}

func checkLengths(sp *mzml.Spectrum, mzLen int, intLen int) error {
	if mzLen != intLen {
		return fmt.Errorf("%w: spectrum %q has %d m/z values and %d intensities", errs.ErrMalformedArray, sp.ID, mzLen, intLen)
	}
	if sp.DeclaredLength >= 0 && sp.DeclaredLength != mzLen {
		return fmt.Errorf("%w: spectrum %q declares %d values, arrays hold %d", errs.ErrMalformedArray, sp.ID, sp.DeclaredLength, mzLen)
	}
	if d := sp.Mz.DeclaredLength; d >= 0 && d != mzLen {
		return fmt.Errorf("%w: spectrum %q m/z array declares %d values, holds %d", errs.ErrMalformedArray, sp.ID, d, mzLen)
	}
	if d := sp.Intensity.DeclaredLength; d >= 0 && d != intLen {
		return fmt.Errorf("%w: spectrum %q intensity array declares %d values, holds %d", errs.ErrMalformedArray, sp.ID, d, intLen)
	}
	if uint64(mzLen) > 1<<32-1 {
		return fmt.Errorf("%w: spectrum %q holds %d values", errs.ErrMalformedArray, sp.ID, mzLen)
	}

	return nil
}
