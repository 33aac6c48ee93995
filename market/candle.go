package market

import (
	"math"
	"sort"
)

// Time units in milliseconds.
const (
	Second int64 = 1000
	Minute       = 60 * Second
	Hour         = 60 * Minute
	Day          = 24 * Hour
	Week         = 7 * Day
	Month        = 30 * Day
	Year         = 12 * Month
)

// Candle represents OHLCV (Open, High, Low, Close, Volume) candlestick data.
// TimeOpen is a unix timestamp in milliseconds. Price and volume fields that
// could not be parsed hold NaN.
type Candle struct {
	TimeOpen int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Open < c.Close
}

// Valid checks Low <= min(Open,Close) <= max(Open,Close) <= High.
// A candle with any NaN price is never valid.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) {
			return false
		}
	}
	return c.Low <= math.Min(c.Open, c.Close) && math.Max(c.Open, c.Close) <= c.High
}

// SortByTime sorts candles ascending by TimeOpen in place.
func SortByTime(cs []Candle) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].TimeOpen < cs[j].TimeOpen })
}

// Dedupe sorts cs and drops later candles that repeat a TimeOpen (keep-first policy).
// The returned slice shares cs' backing array.
func Dedupe(cs []Candle) []Candle {
	SortByTime(cs)
	if len(cs) < 2 {
		return cs
	}
	out := cs[:1]
	for _, c := range cs[1:] {
		if c.TimeOpen == out[len(out)-1].TimeOpen {
			continue
		}
		out = append(out, c)
	}
	return out
}

// MinLow returns the lowest Low, skipping NaN. ok is false when nothing was found.
func MinLow(cs []Candle) (low float64, ok bool) {
	for _, c := range cs {
		if math.IsNaN(c.Low) {
			continue
		}
		if !ok || c.Low < low {
			low, ok = c.Low, true
		}
	}
	return low, ok
}

// MaxHigh returns the highest High, skipping NaN.
func MaxHigh(cs []Candle) (high float64, ok bool) {
	for _, c := range cs {
		if math.IsNaN(c.High) {
			continue
		}
		if !ok || c.High > high {
			high, ok = c.High, true
		}
	}
	return high, ok
}

// MaxVolume returns the largest Volume, skipping NaN.
func MaxVolume(cs []Candle) (vol float64, ok bool) {
	for _, c := range cs {
		if math.IsNaN(c.Volume) {
			continue
		}
		if !ok || c.Volume > vol {
			vol, ok = c.Volume, true
		}
	}
	return vol, ok
}

// Step returns the average spacing between consecutive candles of a sorted set.
// Sets with fewer than two candles, or no time spread, report one minute.
func Step(cs []Candle) float64 {
	if len(cs) < 2 {
		return float64(Minute)
	}
	span := cs[len(cs)-1].TimeOpen - cs[0].TimeOpen
	if span <= 0 {
		return float64(Minute)
	}
	return float64(span) / float64(len(cs)-1)
}
