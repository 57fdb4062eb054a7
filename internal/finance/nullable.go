package finance

import "math"

func ptr(v float64) *float64 { return &v }

func add(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(*a + *b)
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(*a - *b)
}

func scale(a *float64, k float64) *float64 {
	if a == nil {
		return nil
	}
	return ptr(*a * k)
}

// sumKnown adds the non-nil values. It is nil when every value is nil.
func sumKnown(vs ...*float64) *float64 {
	var total float64
	known := false
	for _, v := range vs {
		if v == nil {
			continue
		}
		total += *v
		known = true
	}
	if !known {
		return nil
	}
	return &total
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
