package section

import (
	"fmt"
	"math"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

// DataFormat describes how arrays and metadata are stored in a container.
// One DataFormat applies to every spectrum of a container.
//
// Serialized layout (24 bytes):
//
//	Bytes | Field
//	------|---------------------------
//	0     | ArrayCompression
//	1     | MetaCompression
//	2     | SourceCompression
//	3     | MzWidth
//	4     | IntensityWidth
//	5     | MzTransform
//	6     | IntensityTransform
//	7     | ZstdLevel
//	8-15  | MzTolerance (float64)
//	16-23 | IntensityTolerance (float64)
type DataFormat struct {
	// ArrayCompression compresses m/z and intensity blocks.
	ArrayCompression format.CompressionType
	// MetaCompression compresses metadata, prologue and epilogue blocks.
	MetaCompression format.CompressionType
	// ZstdLevel is the zstd level used at write time (0 = default).
	ZstdLevel uint8

	// SourceCompression, MzWidth and IntensityWidth describe the source
	// arrays of the first spectrum. They are informational: every Division
	// entry records the exact source descriptor of its own arrays.
	SourceCompression format.SourceCompression
	MzWidth           format.ElementWidth
	IntensityWidth    format.ElementWidth

	// MzTransform and MzTolerance configure the m/z role. Its tolerance is
	// absolute.
	MzTransform format.TransformType
	MzTolerance float64

	// IntensityTransform and IntensityTolerance configure the intensity role.
	// Its tolerance is relative to the original value.
	IntensityTransform format.TransformType
	IntensityTolerance float64
}

// DefaultDataFormat returns a lossless zstd format.
func DefaultDataFormat() DataFormat {
	return DataFormat{
		ArrayCompression:   format.CompressionZstd,
		MetaCompression:    format.CompressionZstd,
		ZstdLevel:          3,
		MzTransform:        format.TransformLossless,
		IntensityTransform: format.TransformLossless,
	}
}

// IsLossy reports whether any role uses a lossy transform.
func (df DataFormat) IsLossy() bool {
	return df.MzTransform.IsLossy() || df.IntensityTransform.IsLossy()
}

// Transform returns the transform configured for role.
func (df DataFormat) Transform(role format.ArrayRole) format.TransformType {
	if role == format.RoleMz {
		return df.MzTransform
	}

	return df.IntensityTransform
}

// Tolerance returns the tolerance configured for role.
func (df DataFormat) Tolerance(role format.ArrayRole) float64 {
	if role == format.RoleMz {
		return df.MzTolerance
	}

	return df.IntensityTolerance
}

// Validate checks that every field holds a supported value.
//
// The m/z role accepts lossless, cast32 and delta; the intensity role accepts
// lossless, cast32 and log. Lossy roles need a finite positive tolerance.
func (df DataFormat) Validate() error {
	if !df.ArrayCompression.IsValid() {
		return fmt.Errorf("%w: array compression %d", errs.ErrInvalidDataFormat, df.ArrayCompression)
	}
	if !df.MetaCompression.IsValid() {
		return fmt.Errorf("%w: metadata compression %d", errs.ErrInvalidDataFormat, df.MetaCompression)
	}
	if df.SourceCompression != 0 && !df.SourceCompression.IsValid() {
		return fmt.Errorf("%w: source compression %d", errs.ErrInvalidDataFormat, df.SourceCompression)
	}
	if df.MzWidth != 0 && !df.MzWidth.IsValid() {
		return fmt.Errorf("%w: m/z width %d", errs.ErrInvalidDataFormat, df.MzWidth)
	}
	if df.IntensityWidth != 0 && !df.IntensityWidth.IsValid() {
		return fmt.Errorf("%w: intensity width %d", errs.ErrInvalidDataFormat, df.IntensityWidth)
	}

	switch df.MzTransform {
	case format.TransformLossless, format.TransformCast32, format.TransformDelta:
	default:
		return fmt.Errorf("%w: transform %s not supported for m/z arrays", errs.ErrInvalidDataFormat, df.MzTransform)
	}
	switch df.IntensityTransform {
	case format.TransformLossless, format.TransformCast32, format.TransformLog:
	default:
		return fmt.Errorf("%w: transform %s not supported for intensity arrays", errs.ErrInvalidDataFormat, df.IntensityTransform)
	}

	if err := checkTolerance(df.MzTransform, df.MzTolerance); err != nil {
		return fmt.Errorf("m/z: %w", err)
	}
	if err := checkTolerance(df.IntensityTransform, df.IntensityTolerance); err != nil {
		return fmt.Errorf("intensity: %w", err)
	}

	return nil
}

func checkTolerance(t format.TransformType, tol float64) error {
	if !t.IsLossy() {
		return nil
	}
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		return fmt.Errorf("%w: %s transform needs a positive tolerance, got %g", errs.ErrInvalidTolerance, t, tol)
	}

	return nil
}

// WriteToSlice serializes the DataFormat into data[offset:offset+DataFormatSize]
// and returns the next position.
func (df DataFormat) WriteToSlice(data []byte, offset int) int {
	b := data[offset : offset+DataFormatSize]
	b[0] = uint8(df.ArrayCompression)
	b[1] = uint8(df.MetaCompression)
	b[2] = uint8(df.SourceCompression)
	b[3] = uint8(df.MzWidth)
	b[4] = uint8(df.IntensityWidth)
	b[5] = uint8(df.MzTransform)
	b[6] = uint8(df.IntensityTransform)
	b[7] = df.ZstdLevel
	engine.PutUint64(b[8:16], math.Float64bits(df.MzTolerance))
	engine.PutUint64(b[16:24], math.Float64bits(df.IntensityTolerance))

	return offset + DataFormatSize
}

// ParseDataFormat parses and validates a serialized DataFormat.
func ParseDataFormat(data []byte) (DataFormat, error) {
	if len(data) < DataFormatSize {
		return DataFormat{}, fmt.Errorf("%w: %d bytes", errs.ErrInvalidDataFormat, len(data))
	}

	df := DataFormat{
		ArrayCompression:   format.CompressionType(data[0]),
		MetaCompression:    format.CompressionType(data[1]),
		SourceCompression:  format.SourceCompression(data[2]),
		MzWidth:            format.ElementWidth(data[3]),
		IntensityWidth:     format.ElementWidth(data[4]),
		MzTransform:        format.TransformType(data[5]),
		IntensityTransform: format.TransformType(data[6]),
		ZstdLevel:          data[7],
		MzTolerance:        math.Float64frombits(engine.Uint64(data[8:16])),
		IntensityTolerance: math.Float64frombits(engine.Uint64(data[16:24])),
	}

	if err := df.Validate(); err != nil {
		return DataFormat{}, err
	}

	return df, nil
}
