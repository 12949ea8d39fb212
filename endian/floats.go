package endian

import (
	"fmt"
	"math"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

// AppendFloat32s appends values narrowed to 32-bit floats.
func AppendFloat32s(engine EndianEngine, dst []byte, values []float64) []byte {
	dst = growBytes(dst, len(values)*4)
	for _, v := range values {
		dst = engine.AppendUint32(dst, math.Float32bits(float32(v)))
	}

	return dst
}

// AppendFloat64s appends values as 64-bit floats.
func AppendFloat64s(engine EndianEngine, dst []byte, values []float64) []byte {
	dst = growBytes(dst, len(values)*8)
	for _, v := range values {
		dst = engine.AppendUint64(dst, math.Float64bits(v))
	}

	return dst
}

// AppendFloats appends values packed at the given width.
func AppendFloats(engine EndianEngine, dst []byte, values []float64, width format.ElementWidth) ([]byte, error) {
	switch width {
	case format.Width32:
		return AppendFloat32s(engine, dst, values), nil
	case format.Width64:
		return AppendFloat64s(engine, dst, values), nil
	default:
		return dst, fmt.Errorf("%w: element width %d", errs.ErrMalformedArray, width)
	}
}

// ReadFloats interprets data as packed floats of the given width and appends
// them, widened to float64, to dst.
//
// Returns errs.ErrMalformedArray if len(data) is not a multiple of the width.
func ReadFloats(engine EndianEngine, data []byte, width format.ElementWidth, dst []float64) ([]float64, error) {
	if !width.IsValid() {
		return dst, fmt.Errorf("%w: element width %d", errs.ErrMalformedArray, width)
	}

	size := width.Bytes()
	if len(data)%size != 0 {
		return dst, fmt.Errorf("%w: %d bytes is not a multiple of %d", errs.ErrMalformedArray, len(data), size)
	}

	n := len(data) / size
	if cap(dst)-len(dst) < n {
		grown := make([]float64, len(dst), len(dst)+n)
		copy(grown, dst)
		dst = grown
	}

	if width == format.Width32 {
		for off := 0; off < len(data); off += 4 {
			dst = append(dst, float64(math.Float32frombits(engine.Uint32(data[off:off+4]))))
		}

		return dst, nil
	}

	for off := 0; off < len(data); off += 8 {
		dst = append(dst, math.Float64frombits(engine.Uint64(data[off:off+8])))
	}

	return dst, nil
}

func growBytes(dst []byte, n int) []byte {
	if cap(dst)-len(dst) >= n {
		return dst
	}

	grown := make([]byte, len(dst), len(dst)+n)
	copy(grown, dst)

	return grown
}
