package viewport

import "math"

// Range is a closed [Low, High] interval on one axis.
type Range struct {
	Low  float64
	High float64
}

func (r Range) Width() float64 { return r.High - r.Low }

func (r Range) Mid() float64 { return (r.High + r.Low) / 2 }

// Valid reports whether the range is finite and non-degenerate.
func (r Range) Valid() bool {
	for _, v := range []float64{r.Low, r.High} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.High > r.Low
}

// Contains is inclusive at both ends.
func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// Scale stretches the range by factor around center.
func (r Range) Scale(factor, center float64) Range {
	return Range{
		Low:  center + (r.Low-center)*factor,
		High: center + (r.High-center)*factor,
	}
}

// Shift moves both ends by d.
func (r Range) Shift(d float64) Range {
	return Range{Low: r.Low + d, High: r.High + d}
}
