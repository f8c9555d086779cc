package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Frac returns v*num/den truncated, or 0 when den is 0.
func Frac[T constraints.Unsigned](v, num, den T) T {
	if den == 0 {
		return 0
	}
	return v * num / den
}
