package encoding

import (
	"math"

	"github.com/arloliu/mscompress/format"
)

// ToleranceMode selects how a reconstructed value is compared with the original.
type ToleranceMode uint8

const (
	// ToleranceAbsolute bounds |e - e'|.
	ToleranceAbsolute ToleranceMode = iota + 1
	// ToleranceRelative bounds |e - e'| / |e|; e = 0 requires e' = 0.
	ToleranceRelative
)

func (m ToleranceMode) String() string {
	switch m {
	case ToleranceAbsolute:
		return "absolute"
	case ToleranceRelative:
		return "relative"
	default:
		return "unknown"
	}
}

// Tolerance is the largest error a lossy transform may introduce.
type Tolerance struct {
	Mode  ToleranceMode
	Bound float64
}

// ToleranceFor returns the tolerance convention of role: absolute for m/z,
// relative for intensity.
func ToleranceFor(role format.ArrayRole, bound float64) Tolerance {
	if role == format.RoleMz {
		return Tolerance{Mode: ToleranceAbsolute, Bound: bound}
	}

	return Tolerance{Mode: ToleranceRelative, Bound: bound}
}

// Within reports whether got reconstructs want within the tolerance.
// Non-finite values are never within tolerance.
func (t Tolerance) Within(want, got float64) bool {
	if math.IsNaN(got) || math.IsInf(got, 0) || math.IsNaN(want) || math.IsInf(want, 0) {
		return false
	}

	diff := math.Abs(want - got)
	if t.Mode == ToleranceRelative {
		if want == 0 {
			return got == 0
		}

		return diff/math.Abs(want) <= t.Bound
	}

	return diff <= t.Bound
}
