package math

import "golang.org/x/exp/constraints"

// Clamp limits v to the closed range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// Saturate limits v to [0, 1], the range of normalized color
// components.
func Saturate(v float32) float32 {
	return Clamp(v, 0, 1)
}
