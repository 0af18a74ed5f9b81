package visual

import "gonum.org/v1/gonum/floats"

// SizeRange controls NormalizeSize.
type SizeRange struct {
	Min float64 // size of the smallest radius
	Max float64 // size of the largest radius

	// DegenerateOffset is added to every radius when all radii are equal.
	DegenerateOffset float64
}

// DefaultSizeRange matches the original viewer: sizes in [2,12], radius+5
// when the range collapses.
func DefaultSizeRange() SizeRange {
	return SizeRange{Min: 2, Max: 12, DegenerateOffset: 5}
}

// NormalizeSize maps radii linearly onto [rng.Min, rng.Max]. When every
// radius is equal the range is undefined and each size is radius plus
// rng.DegenerateOffset instead. Empty input yields empty output.
func NormalizeSize(radii []float64, rng SizeRange) []float64 {
	out := make([]float64, len(radii))
	if len(radii) == 0 {
		return out
	}

	lo, hi := floats.Min(radii), floats.Max(radii)
	if hi == lo {
		for i, r := range radii {
			out[i] = r + rng.DegenerateOffset
		}
		return out
	}

	span := rng.Max - rng.Min
	for i, r := range radii {
		out[i] = rng.Min + (r-lo)/(hi-lo)*span
	}
	return out
}
