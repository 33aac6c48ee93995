// Package ticks picks grid line positions for the price and time axes.
package ticks

import (
	"math"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/viewport"
)

// Deltas are the candidate time grid steps in ms, ascending.
var Deltas = []int64{
	market.Minute,
	30 * market.Minute,
	market.Hour,
	3 * market.Hour,
	market.Day,
	3 * market.Day,
	market.Week,
	2 * market.Week,
	market.Month,
	3 * market.Month,
	6 * market.Month,
	market.Year,
	2 * market.Year,
	5 * market.Year,
	10 * market.Year,
}

// labelSpacing is how much wider than a legend column a time step must be.
const labelSpacing = 1.2

// PriceFactor returns the price grid step for range r drawn over height pixels.
// The base step is a power of ten not exceeding the range width. When fewer than
// two full steps fit, it is refined to a tenth, or a third if a tenth would put
// ticks closer than minGap pixels.
func PriceFactor(r viewport.Range, height, minGap float64) float64 {
	w := r.Width()
	if !(w > 0) || math.IsInf(w, 0) || !(height > 0) {
		return 0
	}

	factor := 1.0
	if w < 1 {
		for factor >= w {
			factor /= 10
		}
	} else {
		for factor <= w {
			factor *= 10
		}
		factor /= 10
	}

	if 2*factor >= w {
		finer := factor / 10
		if finer*height/w < minGap {
			finer = factor / 3
		}
		factor = finer
	}
	return factor
}

// Price returns the price grid lines inside r, ascending.
func Price(r viewport.Range, height, minGap float64) []float64 {
	factor := PriceFactor(r, height, minGap)
	if factor <= 0 {
		return nil
	}
	return enumerate(r, factor, 0)
}

// TimeDelta returns the smallest grid step whose on-screen width exceeds
// 1.2 legend columns, or the largest step if none does.
func TimeDelta(r viewport.Range, width, legendWidth float64) int64 {
	w := r.Width()
	for _, d := range Deltas {
		if w > 0 && float64(d)*width/w > labelSpacing*legendWidth {
			return d
		}
	}
	return Deltas[len(Deltas)-1]
}

// Time returns the time grid lines inside r, aligned to TimeDelta.
// Enumeration starts two steps before the aligned floor so edge labels stay
// anchored while the range slides.
func Time(r viewport.Range, width, legendWidth float64) []float64 {
	if !r.Valid() {
		return nil
	}
	return enumerate(r, float64(TimeDelta(r, width, legendWidth)), 2)
}

func enumerate(r viewport.Range, step float64, pad int) []float64 {
	first := math.Floor(r.Low/step) - float64(pad)
	n := int(math.Ceil(r.Width()/step)) + 2*pad + 2

	// guard against absurd densities from hostile input
	if n > 10_000 {
		return nil
	}

	var out []float64
	eps := step * 1e-9
	for i := 0; i <= n; i++ {
		tick := (first + float64(i)) * step
		if tick > r.High+eps {
			break
		}
		if tick >= r.Low-eps {
			out = append(out, tick)
		}
	}
	return out
}
