package encoding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/mscompress/endian"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

const (
	// quantumMargin shrinks quantization steps so that rounding error stays
	// strictly below the tolerance.
	quantumMargin = 1 - 1e-6
	// maxQuantum bounds quantized magnitudes so deltas and zigzag codes fit in 64 bits.
	maxQuantum = 1 << 61
)

// roundingSlack is a relative bound on the error of rounding a reconstructed
// value back to the source width, with a few ulps to spare.
func roundingSlack(width format.ElementWidth) float64 {
	if width == format.Width32 {
		return 0x1p-23
	}

	return 0x1p-51
}

var le = endian.GetLittleEndianEngine()

// Transform converts packed source floats into a container payload and back.
//
// Payload layouts:
//
//	lossless | packed floats of the source width, byte-exact
//	cast32   | packed 32-bit floats
//	delta    | f64 step, then zigzag varint of k[i]-k[i-1] where x ≈ k·step
//	log      | f64 scale, then per value a uvarint code: 0 for zero,
//	         | otherwise (zigzag(k)<<1 | sign) + 1 where |x| ≈ exp(k·scale)
type Transform struct {
	Type      format.TransformType
	Tolerance Tolerance
}

// NewTransform creates the transform of role with its tolerance convention.
func NewTransform(role format.ArrayRole, t format.TransformType, bound float64) Transform {
	return Transform{Type: t, Tolerance: ToleranceFor(role, bound)}
}

// Encode appends the payload of packed, little-endian floats of the given
// width to dst.
//
// Lossy transforms decode their own output and compare each element with the
// input; any element outside the tolerance, a non-finite input or a value that
// overflows the quantizer fails the encode with errs.ErrEncoding.
func (t Transform) Encode(dst []byte, packed []byte, width format.ElementWidth) ([]byte, error) {
	if !width.IsValid() || len(packed)%width.Bytes() != 0 {
		return dst, fmt.Errorf("%w: %d bytes at element width %d", errs.ErrMalformedArray, len(packed), width)
	}

	if t.Type == format.TransformLossless {
		return append(dst, packed...), nil
	}

	values, err := endian.ReadFloats(le, packed, width, nil)
	if err != nil {
		return dst, err
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dst, fmt.Errorf("%w: %s transform: element %d is %g", errs.ErrEncoding, t.Type, i, v)
		}
	}

	start := len(dst)
	switch t.Type {
	case format.TransformCast32:
		dst, err = encodeCast32(dst, values)
	case format.TransformDelta:
		dst, err = encodeDelta(dst, values, t.Tolerance.Bound, width)
	case format.TransformLog:
		dst, err = encodeLog(dst, values, t.Tolerance.Bound, width)
	default:
		return dst, fmt.Errorf("%w: unknown transform %d", errs.ErrEncoding, t.Type)
	}
	if err != nil {
		return dst[:start], err
	}

	if err := t.verify(values, dst[start:], width); err != nil {
		return dst[:start], err
	}

	return dst, nil
}

func (t Transform) verify(values []float64, payload []byte, width format.ElementWidth) error {
	got, err := t.Decode(make([]float64, 0, len(values)), payload, width)
	if err != nil {
		return fmt.Errorf("%w: %s transform produced an unreadable payload: %w", errs.ErrEncoding, t.Type, err)
	}
	if len(got) != len(values) {
		return fmt.Errorf("%w: %s transform produced %d elements, want %d", errs.ErrEncoding, t.Type, len(got), len(values))
	}

	for i, want := range values {
		if !t.Tolerance.Within(want, got[i]) {
			return fmt.Errorf("%w: %s transform: element %d reconstructed as %g from %g, outside %s tolerance %g",
				errs.ErrEncoding, t.Type, i, got[i], want, t.Tolerance.Mode, t.Tolerance.Bound)
		}
	}

	return nil
}

// Decode appends the values stored in payload to dst, rounded to the source
// width.
func (t Transform) Decode(dst []float64, payload []byte, width format.ElementWidth) ([]float64, error) {
	if !width.IsValid() {
		return dst, fmt.Errorf("%w: element width %d", errs.ErrMalformedArray, width)
	}

	switch t.Type {
	case format.TransformLossless:
		return endian.ReadFloats(le, payload, width, dst)
	case format.TransformCast32:
		return endian.ReadFloats(le, payload, format.Width32, dst)
	case format.TransformDelta:
		return decodeDelta(dst, payload, width)
	case format.TransformLog:
		return decodeLog(dst, payload, width)
	default:
		return dst, fmt.Errorf("%w: unknown transform %d", errs.ErrMalformedArray, t.Type)
	}
}

// DecodeRaw appends the values stored in payload to dst as packed
// little-endian floats of the source width.
func (t Transform) DecodeRaw(dst []byte, payload []byte, width format.ElementWidth) ([]byte, error) {
	if t.Type == format.TransformLossless {
		if !width.IsValid() || len(payload)%width.Bytes() != 0 {
			return dst, fmt.Errorf("%w: %d bytes at element width %d", errs.ErrMalformedArray, len(payload), width)
		}

		return append(dst, payload...), nil
	}

	values, err := t.Decode(nil, payload, width)
	if err != nil {
		return dst, err
	}

	return endian.AppendFloats(le, dst, values, width)
}

func encodeCast32(dst []byte, values []float64) ([]byte, error) {
	for i, v := range values {
		if math.Abs(v) > math.MaxFloat32 {
			return dst, fmt.Errorf("%w: cast32 transform: element %d (%g) overflows float32", errs.ErrEncoding, i, v)
		}
	}

	return endian.AppendFloat32s(le, dst, values), nil
}

func encodeDelta(dst []byte, values []float64, tol float64, width format.ElementWidth) ([]byte, error) {
	if !(tol > 0) || math.IsInf(tol, 0) {
		return dst, fmt.Errorf("%w: delta transform: invalid tolerance %g", errs.ErrInvalidTolerance, tol)
	}

	maxAbs := 0.0
	for _, v := range values {
		maxAbs = max(maxAbs, math.Abs(v))
	}
	// the rounding back to source width spends part of the absolute budget
	step := 2 * (tol - maxAbs*roundingSlack(width)) * quantumMargin
	if !(step > 0) {
		return dst, fmt.Errorf("%w: delta transform: tolerance %g is finer than the %s precision of values up to %g",
			errs.ErrEncoding, tol, width, maxAbs)
	}

	dst = le.AppendUint64(dst, math.Float64bits(step))
	prev := int64(0)
	for i, v := range values {
		q := math.Round(v / step)
		if math.Abs(q) >= maxQuantum {
			return dst, fmt.Errorf("%w: delta transform: element %d (%g) overflows the quantizer at step %g", errs.ErrEncoding, i, v, step)
		}
		k := int64(q)
		dst = binary.AppendUvarint(dst, zigzag(k-prev))
		prev = k
	}

	return dst, nil
}

func decodeDelta(dst []float64, payload []byte, width format.ElementWidth) ([]float64, error) {
	if len(payload) < 8 {
		return dst, fmt.Errorf("%w: delta payload of %d bytes", errs.ErrMalformedArray, len(payload))
	}

	step := math.Float64frombits(le.Uint64(payload[:8]))
	if !(step > 0) || math.IsInf(step, 0) {
		return dst, fmt.Errorf("%w: delta step %g", errs.ErrMalformedArray, step)
	}

	k := int64(0)
	for pos := 8; pos < len(payload); {
		u, n := binary.Uvarint(payload[pos:])
		if n <= 0 {
			return dst, fmt.Errorf("%w: truncated delta at byte %d", errs.ErrMalformedArray, pos)
		}
		pos += n
		k += unzigzag(u)
		dst = append(dst, roundToWidth(float64(k)*step, width))
	}

	return dst, nil
}

func encodeLog(dst []byte, values []float64, tol float64, width format.ElementWidth) ([]byte, error) {
	if !(tol > 0) || math.IsInf(tol, 0) {
		return dst, fmt.Errorf("%w: log transform: invalid tolerance %g", errs.ErrInvalidTolerance, tol)
	}

	scale := 2 * (math.Log1p(tol) - math.Log1p(roundingSlack(width))) * quantumMargin
	if !(scale > 0) {
		return dst, fmt.Errorf("%w: log transform: tolerance %g is finer than the %s precision", errs.ErrEncoding, tol, width)
	}

	dst = le.AppendUint64(dst, math.Float64bits(scale))
	for i, v := range values {
		if v == 0 {
			dst = binary.AppendUvarint(dst, 0)
			continue
		}

		sign := uint64(0)
		if v < 0 {
			sign = 1
		}
		q := math.Round(math.Log(math.Abs(v)) / scale)
		if math.Abs(q) >= maxQuantum {
			return dst, fmt.Errorf("%w: log transform: element %d (%g) overflows the quantizer at scale %g", errs.ErrEncoding, i, v, scale)
		}
		dst = binary.AppendUvarint(dst, (zigzag(int64(q))<<1|sign)+1)
	}

	return dst, nil
}

func decodeLog(dst []float64, payload []byte, width format.ElementWidth) ([]float64, error) {
	if len(payload) < 8 {
		return dst, fmt.Errorf("%w: log payload of %d bytes", errs.ErrMalformedArray, len(payload))
	}

	scale := math.Float64frombits(le.Uint64(payload[:8]))
	if !(scale > 0) || math.IsInf(scale, 0) {
		return dst, fmt.Errorf("%w: log scale %g", errs.ErrMalformedArray, scale)
	}

	for pos := 8; pos < len(payload); {
		code, n := binary.Uvarint(payload[pos:])
		if n <= 0 {
			return dst, fmt.Errorf("%w: truncated log code at byte %d", errs.ErrMalformedArray, pos)
		}
		pos += n

		if code == 0 {
			dst = append(dst, 0)
			continue
		}
		code--
		v := math.Exp(float64(unzigzag(code>>1)) * scale)
		if code&1 == 1 {
			v = -v
		}
		dst = append(dst, roundToWidth(v, width))
	}

	return dst, nil
}

func roundToWidth(v float64, width format.ElementWidth) float64 {
	if width == format.Width32 {
		return float64(float32(v))
	}

	return v
}

// zigzag maps signed values to unsigned so small magnitudes of either sign
// encode to short varints.
func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63)) //nolint: gosec
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1) //nolint: gosec
}
