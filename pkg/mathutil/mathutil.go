// Package mathutil provides rounding and clamping helpers shared by the scoring code.
package mathutil

import "math"

// Round rounds val to the given number of decimal places, half away from zero.
// NaN and infinities are returned unchanged.
func Round(val float64, decimals int) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(val*p) / p
}

// Clamp limits val to [lo, hi]. NaN propagates.
func Clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}

// Sign returns -1, 0 or 1 according to the sign of val.
func Sign(val float64) int {
	switch {
	case val > 0:
		return 1
	case val < 0:
		return -1
	default:
		return 0
	}
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
