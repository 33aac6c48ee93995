// Package format renders prices, dates, volumes and time spans as legend text.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/viewport"
)

// Measurer reports the rendered width of a string in pixels.
type Measurer interface {
	MeasureText(s string) float64
}

// EnglishMonths is the default month table.
var EnglishMonths = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Formatter sizes price and date labels to the legend column.
type Formatter struct {
	Measure     Measurer
	LegendWidth float64
	Location    *time.Location
	Months      [12]string
}

func New(m Measurer, legendWidth float64) *Formatter {
	return &Formatter{
		Measure:     m,
		LegendWidth: legendWidth,
		Location:    time.UTC,
		Months:      EnglishMonths,
	}
}

// Value formats a price at the resolution of one pixel of r drawn over height
// pixels. Labels wider than the legend column switch to mantissa/exponent form.
func (f *Formatter) Value(v float64, r viewport.Range, height float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	pixel := r.Width() / height
	if !(pixel > 0) || math.IsInf(pixel, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}

	factor, pow := 1.0, 0
	for ; factor < r.High && pow < 300; pow, factor = pow+1, factor*10 {
	}
	for ; factor/10 > pixel && pow > -300; pow, factor = pow-1, factor/10 {
	}

	// extra precision before fixing decimals
	rounded := math.Round(v/factor*10000) * factor / 10000
	decimals := 2
	if -pow > decimals {
		decimals = -pow
	}
	s := strconv.FormatFloat(rounded, 'f', decimals, 64)
	if f.Measure == nil || f.Measure.MeasureText(s) <= f.LegendWidth {
		return s
	}
	return fmt.Sprintf("%.1fe%d", v/factor, pow)
}

// Date formats a timestamp as "D Mon 'YY", adding " H:MM" when the time grid
// step is finer than a day.
func (f *Formatter) Date(ms int64, delta int64) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(ms).In(loc)
	s := fmt.Sprintf("%d %s '%02d", t.Day(), f.Months[t.Month()-1], t.Year()%100)
	if delta < market.Day {
		s += fmt.Sprintf(" %d:%02d", t.Hour(), t.Minute())
	}
	return s
}

var volumeSuffixes = []string{"K", "M", "G", "T"}

// Volume formats a volume with a K/M/G/T magnitude suffix.
func Volume(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	for _, suffix := range volumeSuffixes {
		if v/1000 < 1 {
			break
		}
		v /= 1000
		s = strconv.FormatFloat(v, 'f', 3, 64) + suffix
	}
	return s
}

// Span is a duration split into whole days, hours and minutes.
type Span struct {
	Days    int
	Hours   int
	Minutes int
}

// SpanOf splits a duration given in ms.
func SpanOf(ms float64) Span {
	sec := ms / 1000
	days := math.Floor(sec / 86400)
	hours := math.Floor(sec/3600 - days*24)
	minutes := math.Floor(sec/60 - hours*60 - days*1440)
	return Span{Days: int(days), Hours: int(hours), Minutes: int(minutes)}
}

// String shows the coarsest non-zero unit, rounding up at the half-point of
// the next finer unit.
func (s Span) String() string {
	switch {
	case s.Days > 0:
		d := s.Days
		if s.Hours >= 12 {
			d++
		}
		return fmt.Sprintf("%d d", d)
	case s.Hours > 0:
		h := s.Hours
		if s.Minutes >= 30 {
			h++
		}
		return fmt.Sprintf("%d h", h)
	default:
		return fmt.Sprintf("%d min", s.Minutes)
	}
}
