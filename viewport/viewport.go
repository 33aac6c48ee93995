// Package viewport maps between the time/price domain and chart pixels and
// applies pan and zoom to the visible ranges.
package viewport

import (
	"math"

	"github.com/KDVMan/candlechart/market"
)

// Axis selects which ranges RescaleToData touches.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY

	AxisBoth = AxisX | AxisY
)

// Bounds limits how many candles may be visible at once. Zero means unset.
type Bounds struct {
	MinSticks int
	MaxSticks int
}

// Viewport owns the visible time range X (ms), price range Y and the volume
// scale range V. Width and Height are the chart drawing area in pixels,
// legends excluded. Step is the candle spacing in ms.
type Viewport struct {
	X Range
	Y Range

	V    float64 // volume scale, zoomed together with Y
	MaxV float64 // largest volume in the loaded window

	Width  float64
	Height float64
	Step   float64
}

func New(width, height float64) *Viewport {
	return &Viewport{
		Width:  width,
		Height: height,
		Step:   float64(market.Minute),
	}
}

// Ready reports whether both ranges and the pixel area can be used for transforms.
func (v *Viewport) Ready() bool {
	return v.X.Valid() && v.Y.Valid() && v.Width > 0 && v.Height > 0
}

func (v *Viewport) SetSize(width, height float64) {
	v.Width = width
	v.Height = height
}

// SetX assigns the time range unless it is degenerate.
func (v *Viewport) SetX(r Range) bool {
	if !r.Valid() {
		return false
	}
	v.X = r
	return true
}

// SetY assigns the price range unless it is degenerate.
func (v *Viewport) SetY(r Range) bool {
	if !r.Valid() {
		return false
	}
	v.Y = r
	return true
}

// SetVolume resets the volume scale to the window's largest volume.
func (v *Viewport) SetVolume(maxV float64) {
	v.V = maxV
	v.MaxV = maxV
}

func (v *Viewport) ToScreenX(t float64) float64 {
	return (t - v.X.Low) * v.Width / v.X.Width()
}

func (v *Viewport) ToScreenY(p float64) float64 {
	return v.Height - (p-v.Y.Low)*v.Height/v.Y.Width()
}

func (v *Viewport) ToDomainX(x float64) float64 {
	return v.X.Low + x*v.X.Width()/v.Width
}

func (v *Viewport) ToDomainY(y float64) float64 {
	return v.Y.High - y*v.Y.Width()/v.Height
}

// ScaleX converts a time distance to pixels.
func (v *Viewport) ScaleX(d float64) float64 {
	return d * v.Width / v.X.Width()
}

// ScaleY converts a price distance to pixels.
func (v *Viewport) ScaleY(d float64) float64 {
	return d * v.Height / v.Y.Width()
}

// Pan drags the view by a pixel delta. Dragging right reveals older data,
// dragging down reveals higher prices.
func (v *Viewport) Pan(dx, dy float64) {
	if v.Width <= 0 || v.Height <= 0 {
		return
	}
	x := v.X.Shift(-dx * v.X.Width() / v.Width)
	y := v.Y.Shift(dy * v.Y.Width() / v.Height)
	v.SetX(x)
	v.SetY(y)
}

// OnscreenSticks is how many candles fit in the visible time range.
func (v *Viewport) OnscreenSticks() float64 {
	if v.Step <= 0 {
		return 0
	}
	return v.X.Width()/v.Step + 1
}

// ZoomTime scales the time range around its midpoint.
func (v *Viewport) ZoomTime(factor float64, b Bounds) bool {
	return v.zoomTime(factor, v.X.Mid(), b)
}

// ZoomTimeAt scales the time range around the time under pixel x.
func (v *Viewport) ZoomTimeAt(factor, x float64, b Bounds) bool {
	return v.zoomTime(factor, v.ToDomainX(x), b)
}

func (v *Viewport) zoomTime(factor, center float64, b Bounds) bool {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return false
	}
	sticks := v.OnscreenSticks()
	if b.MaxSticks > 0 && sticks*factor > float64(b.MaxSticks) {
		return false
	}
	if b.MinSticks > 0 && sticks*factor < float64(b.MinSticks) {
		return false
	}
	return v.SetX(v.X.Scale(factor, center))
}

// ZoomPrice scales the price range around its midpoint; the volume scale
// follows by the same factor.
func (v *Viewport) ZoomPrice(factor float64) bool {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return false
	}
	if !v.SetY(v.Y.Scale(factor, v.Y.Mid())) {
		return false
	}
	v.V *= factor
	return true
}

// ClampSticks rescales the time range around its midpoint so the onscreen
// candle count respects b.
func (v *Viewport) ClampSticks(b Bounds) {
	v.ClampSticksAt(b, v.X.Mid())
}

// ClampSticksAt is ClampSticks with the time anchor held in place.
func (v *Viewport) ClampSticksAt(b Bounds, anchor float64) {
	if v.Step <= 0 || v.X.Width() <= 0 {
		return
	}
	sticks := v.OnscreenSticks()
	if b.MaxSticks > 1 && sticks > float64(b.MaxSticks) {
		v.fitSticks(b.MaxSticks, anchor)
		sticks = v.OnscreenSticks()
	}
	if b.MinSticks > 1 && sticks < float64(b.MinSticks) {
		v.fitSticks(b.MinSticks, anchor)
	}
}

func (v *Viewport) fitSticks(n int, anchor float64) {
	width := float64(n-1) * v.Step
	v.SetX(v.X.Scale(width/v.X.Width(), anchor))
}

// RescaleToData fits the selected axes to a sorted candle set: X spans the
// first and last TimeOpen, Y spans the lowest Low and highest High. Axes whose
// new range would be degenerate keep their previous range; the result reports
// whether every requested axis was updated.
func (v *Viewport) RescaleToData(cs []market.Candle, axis Axis) bool {
	if len(cs) == 0 {
		return false
	}
	ok := true
	if axis&AxisX != 0 {
		r := Range{Low: float64(cs[0].TimeOpen), High: float64(cs[len(cs)-1].TimeOpen)}
		if v.SetX(r) {
			v.Step = market.Step(cs)
		} else {
			ok = false
		}
	}
	if axis&AxisY != 0 {
		low, okL := market.MinLow(cs)
		high, okH := market.MaxHigh(cs)
		if !okL || !okH || !v.SetY(Range{Low: low, High: high}) {
			ok = false
		}
	}
	return ok
}
