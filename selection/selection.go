// Package selection summarises the region under a dragged selection box.
package selection

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KDVMan/candlechart/format"
	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/viewport"
)

// Box is a selection in pixel space. (X1,Y1) is where the drag started,
// (X2,Y2) follows the pointer until the box is Locked.
type Box struct {
	X1, Y1 float64
	X2, Y2 float64
	Locked bool
}

// Start opens a box at a point.
func Start(x, y float64) *Box {
	return &Box{X1: x, Y1: y, X2: x, Y2: y}
}

// Drag moves the far corner unless the box is locked.
func (b *Box) Drag(x, y float64) bool {
	if b.Locked {
		return false
	}
	b.X2, b.Y2 = x, y
	return true
}

// Rect returns the normalised corners.
func (b *Box) Rect() (x1, y1, x2, y2 float64) {
	return math.Min(b.X1, b.X2), math.Min(b.Y1, b.Y2), math.Max(b.X1, b.X2), math.Max(b.Y1, b.Y2)
}

// Upward reports whether the drag went up the screen, i.e. towards higher prices.
func (b *Box) Upward() bool { return b.Y1 > b.Y2 }

// Leftward reports a right-to-left drag.
func (b *Box) Leftward() bool { return b.X2 < b.X1 }

// Summary is what the info box next to a selection shows.
type Summary struct {
	Delta   float64 // price at Y2 minus price at Y1
	Percent float64 // Delta relative to the price at Y1
	Bars    int     // negative for right-to-left drags
	Volume  float64
	Span    format.Span
}

// Analyze converts the box through vp and summarises candles.
func Analyze(b *Box, vp *viewport.Viewport, candles []market.Candle) Summary {
	x1, _, x2, _ := b.Rect()
	return AnalyzeDomain(
		vp.ToDomainX(x1), vp.ToDomainX(x2),
		vp.ToDomainY(b.Y1), vp.ToDomainY(b.Y2),
		b.Leftward(), candles,
	)
}

// AnalyzeDomain summarises candles with TimeOpen in [t1, t2] and the move
// from price p1 to p2.
func AnalyzeDomain(t1, t2, p1, p2 float64, leftward bool, candles []market.Candle) Summary {
	s := Summary{
		Delta: p2 - p1,
		Span:  format.SpanOf(t2 - t1),
	}
	s.Percent = s.Delta * 100 / p1

	for _, c := range candles {
		t := float64(c.TimeOpen)
		if t < t1 || t > t2 {
			continue
		}
		s.Bars++
		if !math.IsNaN(c.Volume) {
			s.Volume += c.Volume
		}
	}
	if leftward {
		s.Bars = -s.Bars
	}
	return s
}

// Lines renders the summary as three legend lines; value formats the delta.
func (s Summary) Lines(value func(float64) string) [3]string {
	return [3]string{
		fmt.Sprintf("%s (%s%%)", value(s.Delta), strconv.FormatFloat(s.Percent, 'f', 2, 64)),
		fmt.Sprintf("%d bars, %s", s.Bars, s.Span),
		"Vol " + format.Volume(s.Volume),
	}
}
