package cf

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/nainya/zarrdump/pkg/metadata"
)

// Direction is the monotonicity of a sampled coordinate.
type Direction int

const (
	NotMonotonic Direction = iota
	Increasing
	Decreasing
	Constant
)

func (d Direction) String() string {
	switch d {
	case Increasing:
		return "increasing"
	case Decreasing:
		return "decreasing"
	case Constant:
		return "constant"
	}
	return "not monotonic"
}

// MissingValues collects numeric markers from _FillValue, missing_value and
// the declared fill value, sorted and deduplicated.
func MissingValues(v *metadata.Variable) []float64 {
	var out []float64
	var push func(metadata.Value)
	push = func(val metadata.Value) {
		switch x := val.(type) {
		case metadata.Number, metadata.Integer:
			f, _ := metadata.Float(x)
			out = append(out, f)
		case metadata.Array:
			for _, item := range x {
				push(item)
			}
		}
	}

	if val, ok := v.Attributes["_FillValue"]; ok {
		push(val)
	}
	if val, ok := v.Attributes["missing_value"]; ok {
		push(val)
	}
	if v.FillValue != nil {
		push(v.FillValue)
	}

	slices.Sort(out)
	return slices.Compact(out)
}

// usable drops non-finite values and missing markers.
func usable(values, missing []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if _, found := slices.BinarySearch(missing, x); found {
			continue
		}
		out = append(out, x)
	}
	return out
}

// Monotonic classifies the usable values in one forward pass. Fewer than
// two usable values yields NotMonotonic.
func Monotonic(values, missing []float64) Direction {
	xs := usable(values, missing)
	if len(xs) < 2 {
		return NotMonotonic
	}

	nondecreasing, nonincreasing, changed := true, true, false
	for i := 1; i < len(xs); i++ {
		a, b := xs[i-1], xs[i]
		if b < a {
			nondecreasing = false
		}
		if b > a {
			nonincreasing = false
		}
		if b != a {
			changed = true
		}
		if !nondecreasing && !nonincreasing {
			return NotMonotonic
		}
	}

	switch {
	case !changed:
		return Constant
	case nondecreasing:
		return Increasing
	default:
		return Decreasing
	}
}

// MinMax returns the range of the usable values.
func MinMax(values, missing []float64) (lo, hi float64, ok bool) {
	xs := usable(values, missing)
	if len(xs) == 0 {
		return 0, 0, false
	}
	return floats.Min(xs), floats.Max(xs), true
}
