package render

import (
	"math"

	"github.com/KDVMan/candlechart/format"
	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/selection"
	"github.com/KDVMan/candlechart/ticks"
	"github.com/KDVMan/candlechart/viewport"
)

const (
	volumeShare = 0.35 // volume bars fill this share of the height at V
	arrowSize   = 10
	selectAlpha = 0.25
)

var lastPriceDash = []float64{5, 5}

// Geometry is the canvas layout. The chart area excludes the price legend on
// the right and the time legend at the bottom.
type Geometry struct {
	Width        float64
	Height       float64
	LegendWidth  float64
	LegendHeight float64
	FontSize     float64
}

func (g Geometry) ChartWidth() float64  { return g.Width - g.LegendWidth }
func (g Geometry) ChartHeight() float64 { return g.Height - g.LegendHeight }

// Pointer is a pointer position in canvas pixels. Negative coordinates mean
// the pointer is outside the canvas.
type Pointer struct {
	X, Y float64
}

// Outside is the pointer position after it leaves the canvas.
var Outside = Pointer{X: -1, Y: -1}

// Frame is everything one redraw needs.
type Frame struct {
	Viewport *viewport.Viewport
	Visible  []market.Candle // candles to draw
	Window   []market.Candle // whole loaded window, for selection summaries
	Last     *market.Candle  // last-price marker, nil for none
	Pointer  Pointer
	Panning  bool // dragging with cursor capture hides the crosshair
	Box      *selection.Box
}

// Pipeline draws frames onto a canvas.
type Pipeline struct {
	Geometry         Geometry
	Styles           Styles
	Format           *format.Formatter
	GapSize          float64 // desired pixels between candle bodies
	MaxValPercentage float64 // cap on the tallest volume bar as a share of height
}

func NewPipeline(g Geometry, s Styles, f *format.Formatter) *Pipeline {
	return &Pipeline{
		Geometry:         g,
		Styles:           s,
		Format:           f,
		GapSize:          1,
		MaxValPercentage: 0.2,
	}
}

// Draw renders f. Until the viewport is ready only the background and the
// legend panels are drawn.
func (p *Pipeline) Draw(c Canvas, f Frame) {
	g := p.Geometry
	W, H := g.ChartWidth(), g.ChartHeight()
	vp := f.Viewport

	c.FillRect(Rect{X: 0, Y: 0, W: W, H: H, Color: p.Styles.Background})
	if vp == nil || !vp.Ready() {
		p.legends(c)
		return
	}

	delta := ticks.TimeDelta(vp.X, W, g.LegendWidth)
	times := ticks.Time(vp.X, W, g.LegendWidth)
	prices := ticks.Price(vp.Y, H, g.LegendHeight)

	p.grid(c, vp, times, prices)
	p.candles(c, vp, f)
	p.legends(c)

	for _, t := range times {
		x := clamp(vp.ToScreenX(t), 0.4*g.LegendWidth, W-0.4*g.LegendWidth)
		c.Text(Label{
			Text:  p.Format.Date(int64(t), delta),
			X:     x,
			Y:     H + g.LegendHeight*2/3,
			Align: AlignCenter,
			Color: p.Styles.Text,
		})
	}
	for _, v := range prices {
		y := clamp(vp.ToScreenY(v), g.FontSize/3+3, H-g.FontSize/3-3)
		c.Text(Label{
			Text:  p.Format.Value(v, vp.Y, H),
			X:     W + g.LegendWidth/2,
			Y:     y + g.FontSize/3,
			Align: AlignCenter,
			Color: p.Styles.Text,
		})
	}

	if f.Last != nil && finite(f.Last.Close) {
		y := vp.ToScreenY(f.Last.Close)
		if y >= 0 && y <= H {
			p.priceTag(c, vp, f.Last.Close, p.Styles.trend(f.Last.Bullish()), true)
		}
	}

	if !f.Panning {
		if f.Pointer.Y >= 0 && f.Pointer.Y <= H {
			p.priceTag(c, vp, vp.ToDomainY(f.Pointer.Y), p.Styles.Crosshair, true)
		}
		if f.Pointer.X >= 0 && f.Pointer.X <= W {
			p.timeTag(c, vp, vp.ToDomainX(f.Pointer.X), delta, p.Styles.Crosshair, true)
		}
	}

	if f.Box != nil {
		p.selection(c, vp, f.Box, f.Window, delta)
	}
}

func (p *Pipeline) grid(c Canvas, vp *viewport.Viewport, times, prices []float64) {
	W, H := p.Geometry.ChartWidth(), p.Geometry.ChartHeight()
	lines := make([][]Point, 0, len(times)+len(prices))
	for _, t := range times {
		x := vp.ToScreenX(t)
		lines = append(lines, []Point{{x, 0}, {x, H}})
	}
	for _, v := range prices {
		y := vp.ToScreenY(v)
		lines = append(lines, []Point{{0, y}, {W, y}})
	}
	if len(lines) > 0 {
		c.Stroke(Path{Points: lines, Color: p.Styles.Grid})
	}
}

// HalfWidth is half a candle body in pixels.
func (p *Pipeline) HalfWidth(vp *viewport.Viewport) float64 {
	return math.Max(1, (vp.ScaleX(vp.Step)-p.GapSize)/2)
}

// VolumeScale converts volume to pixels: V maps to a fixed share of the
// height, shrunk when the tallest bar would exceed MaxValPercentage.
func (p *Pipeline) VolumeScale(vp *viewport.Viewport) float64 {
	H := p.Geometry.ChartHeight()
	if !(vp.V > 0) || !finite(vp.V) {
		return 0
	}
	scale := H / vp.V * volumeShare
	if top := vp.MaxV * scale; top > p.MaxValPercentage*H {
		scale *= p.MaxValPercentage * H / top
	}
	return scale
}

func (p *Pipeline) candles(c Canvas, vp *viewport.Viewport, f Frame) {
	W, H := p.Geometry.ChartWidth(), p.Geometry.ChartHeight()
	hw := p.HalfWidth(vp)
	vScale := p.VolumeScale(vp)

	for _, k := range f.Visible {
		x := vp.ToScreenX(float64(k.TimeOpen))
		if x < -hw || x > W+hw {
			continue
		}
		hot := f.Pointer.X >= 0 && f.Pointer.X >= x-hw && f.Pointer.X <= x+hw
		up := k.Bullish()

		if finite(k.Volume) && vScale > 0 {
			h := k.Volume * vScale
			c.FillRect(Rect{X: x - hw, Y: H - h, W: 2 * hw, H: h, Color: p.Styles.volume(up, hot)})
		}

		color := p.Styles.candle(up, hot)
		if finite(k.Open) && finite(k.Close) {
			top := vp.ToScreenY(math.Max(k.Open, k.Close))
			bottom := vp.ToScreenY(math.Min(k.Open, k.Close))
			c.FillRect(Rect{X: x - hw, Y: top, W: 2 * hw, H: bottom - top, Color: color})
		}
		if finite(k.High) && finite(k.Low) {
			top := vp.ToScreenY(k.High)
			bottom := vp.ToScreenY(k.Low)
			c.FillRect(Rect{X: x - 1, Y: top, W: 2, H: bottom - top, Color: color})
		}
	}
}

func (p *Pipeline) legends(c Canvas) {
	g := p.Geometry
	W, H := g.ChartWidth(), g.ChartHeight()
	c.FillRect(Rect{X: W, Y: 0, W: g.LegendWidth, H: g.Height, Color: p.Styles.Background})
	c.FillRect(Rect{X: 0, Y: H, W: g.Width, H: g.LegendHeight, Color: p.Styles.Background})
}

// priceTag marks a price with a tag in the price legend and optionally a
// dashed line across the chart.
func (p *Pipeline) priceTag(c Canvas, vp *viewport.Viewport, v float64, color string, line bool) {
	g := p.Geometry
	W, H := g.ChartWidth(), g.ChartHeight()
	y := vp.ToScreenY(v)
	if line {
		c.Stroke(Path{Points: [][]Point{{{0, y}, {W, y}}}, Color: color, Dash: lastPriceDash})
	}
	y = clamp(y, g.LegendHeight/2, H-g.LegendHeight/2)
	c.FillRect(Rect{X: W, Y: y - g.LegendHeight/2, W: g.LegendWidth, H: g.LegendHeight, Color: color})
	c.Text(Label{
		Text:  p.Format.Value(v, vp.Y, H),
		X:     W + g.LegendWidth/2,
		Y:     y + g.LegendHeight/6,
		Align: AlignCenter,
		Color: p.Styles.LegendText,
	})
}

// timeTag is priceTag for the time axis.
func (p *Pipeline) timeTag(c Canvas, vp *viewport.Viewport, t float64, delta int64, color string, line bool) {
	g := p.Geometry
	W, H := g.ChartWidth(), g.ChartHeight()
	x := vp.ToScreenX(t)
	if line {
		c.Stroke(Path{Points: [][]Point{{{x, 0}, {x, H}}}, Color: color, Dash: lastPriceDash})
	}
	x = clamp(x, g.LegendWidth/2, W-g.LegendWidth/2)
	c.FillRect(Rect{X: x - g.LegendWidth/2, Y: H, W: g.LegendWidth, H: g.LegendHeight, Color: color})
	c.Text(Label{
		Text:  p.Format.Date(int64(t), delta),
		X:     x,
		Y:     H + g.LegendHeight*2/3,
		Align: AlignCenter,
		Color: p.Styles.LegendText,
	})
}

func (p *Pipeline) selection(c Canvas, vp *viewport.Viewport, b *selection.Box, window []market.Candle, delta int64) {
	g := p.Geometry
	W, H := g.ChartWidth(), g.ChartHeight()
	x1, y1, x2, y2 := b.Rect()
	color := p.Styles.trend(b.Upward())

	c.FillRect(Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1, Color: color, Alpha: selectAlpha})

	p.priceTag(c, vp, vp.ToDomainY(y1), p.Styles.Selection, false)
	p.priceTag(c, vp, vp.ToDomainY(y2), p.Styles.Selection, false)
	p.timeTag(c, vp, vp.ToDomainX(x1), delta, p.Styles.Selection, false)
	p.timeTag(c, vp, vp.ToDomainX(x2), delta, p.Styles.Selection, false)

	cx, cy := (x1+x2)/2, (y1+y2)/2
	lines := [][]Point{
		{{x1, cy}, {x2, cy}},
		{{cx, y1}, {cx, y2}},
	}
	if x2-x1 >= arrowSize {
		if b.Leftward() {
			lines = append(lines, []Point{{x1 + arrowSize, cy - arrowSize}, {x1, cy}, {x1 + arrowSize, cy + arrowSize}})
		} else {
			lines = append(lines, []Point{{x2 - arrowSize, cy - arrowSize}, {x2, cy}, {x2 - arrowSize, cy + arrowSize}})
		}
	}
	if y2-y1 >= arrowSize {
		if b.Upward() {
			lines = append(lines, []Point{{cx + arrowSize, y1 + arrowSize}, {cx, y1}, {cx - arrowSize, y1 + arrowSize}})
		} else {
			lines = append(lines, []Point{{cx + arrowSize, y2 - arrowSize}, {cx, y2}, {cx - arrowSize, y2 - arrowSize}})
		}
	}
	c.Stroke(Path{Points: lines, Color: color})

	sum := selection.Analyze(b, vp, window)
	text := sum.Lines(func(v float64) string { return p.Format.Value(v, vp.Y, H) })

	var widest float64
	for _, s := range text {
		widest = math.Max(widest, p.measure(s))
	}
	bw, bh := widest*1.2, g.LegendHeight*3
	bx := math.Max(0, math.Min((x1+x2-bw)/2, W-bw))
	by := math.Max(0, math.Min(y2+g.LegendHeight/4, H-bh))

	c.FillRect(Rect{X: bx, Y: by, W: bw, H: bh, Color: color})
	for i, s := range text {
		c.Text(Label{
			Text:  s,
			X:     bx + bw/2,
			Y:     by + g.FontSize*(1.5+float64(i)),
			Align: AlignCenter,
			Color: p.Styles.LegendText,
		})
	}
}

func (p *Pipeline) measure(s string) float64 {
	if p.Format != nil && p.Format.Measure != nil {
		return p.Format.Measure.MeasureText(s)
	}
	return FixedMeasurer{FontSize: p.Geometry.FontSize}.MeasureText(s)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
