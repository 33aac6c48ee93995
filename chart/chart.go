// Package chart is the interactive candlestick chart: a viewport over a
// sliding window of candles, pointer and wheel handling, and the render
// pipeline drawing onto a host canvas.
package chart

import (
	"context"
	"errors"
	"log"
	"math"

	"github.com/KDVMan/candlechart/format"
	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/render"
	"github.com/KDVMan/candlechart/selection"
	"github.com/KDVMan/candlechart/viewport"
	"github.com/KDVMan/candlechart/window"
)

var (
	ErrNoCanvas   = errors.New("chart: canvas is required")
	ErrNoMeasurer = errors.New("chart: text measurer is required")
)

const (
	zoomStep = 1.1

	// legendSample is the widest date label; it sizes the price legend.
	legendSample = " 99 MON 'YR "
)

// Chart is not safe for concurrent use. The host calls every method from
// one goroutine; fetched blocks are applied by Frame or Settle.
type Chart struct {
	canvas  render.Canvas
	measure render.TextMeasurer
	opts    Options
	log     *log.Logger

	vp     *viewport.Viewport
	win    *window.Manager
	format *format.Formatter
	pipe   *render.Pipeline

	last     *market.Candle
	pointer  render.Pointer
	dragging bool
	box      *selection.Box
}

func New(c render.Canvas, m render.TextMeasurer, opts Options, logger *log.Logger) (*Chart, error) {
	if c == nil {
		return nil, ErrNoCanvas
	}
	if m == nil {
		return nil, ErrNoMeasurer
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	f := format.New(m, 0)
	ch := &Chart{
		canvas:  c,
		measure: m,
		opts:    opts,
		log:     logger,
		vp:      viewport.New(0, 0),
		win:     window.New(opts.Fetcher, opts.window(), logger),
		format:  f,
		pipe:    render.NewPipeline(render.Geometry{}, opts.Styles, f),
		pointer: render.Outside,
	}
	ch.pipe.GapSize = opts.GapSizeDesired
	ch.pipe.MaxValPercentage = opts.MaxValPercentage
	return ch, nil
}

// Configure replaces the options, or changes nothing when they are invalid.
func (c *Chart) Configure(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	opts = opts.withDefaults()
	c.opts = opts
	c.win.SetFetcher(opts.Fetcher)
	c.win.Configure(opts.window())
	c.pipe.Styles = opts.Styles
	c.pipe.GapSize = opts.GapSizeDesired
	c.pipe.MaxValPercentage = opts.MaxValPercentage
	if c.win.Len() > 0 {
		c.vp.ClampSticks(opts.bounds())
	}
	return nil
}

func (c *Chart) Options() Options { return c.opts }

// SetGeometry sizes the canvas. The legends take their size from the font.
func (c *Chart) SetGeometry(width, height, fontSize float64) {
	g := render.Geometry{
		Width:        width,
		Height:       height,
		LegendWidth:  c.measure.MeasureText(legendSample),
		LegendHeight: 2 * fontSize,
		FontSize:     fontSize,
	}
	c.pipe.Geometry = g
	c.format.LegendWidth = g.LegendWidth
	c.vp.SetSize(g.ChartWidth(), g.ChartHeight())
}

func (c *Chart) Geometry() render.Geometry { return c.pipe.Geometry }

func (c *Chart) Viewport() *viewport.Viewport { return c.vp }

func (c *Chart) Window() *window.Manager { return c.win }

// Box returns the current selection, or nil.
func (c *Chart) Box() *selection.Box { return c.box }

// Pending reports whether a block fetch is running.
func (c *Chart) Pending() bool { return c.win.InFlight() }

// Update replaces the data set and redraws. An empty data set empties the
// window; call Redraw to repaint without replacing anything. Recorded data
// limits and the selection box are dropped, as are blocks still in flight
// for the old data. When X is rescaled and the stick bounds cut the view,
// the newest candle stays at the right edge.
func (c *Chart) Update(data []market.Candle, rescaleX, rescaleY, setLastPrice bool) {
	c.win.Reset(data)
	c.box = nil
	cs := c.win.Candles()
	if len(cs) == 0 {
		c.Redraw()
		return
	}

	c.vp.Step = c.win.Step()
	var axis viewport.Axis
	if rescaleX {
		axis |= viewport.AxisX
	}
	if rescaleY {
		axis |= viewport.AxisY
	}
	if axis != 0 && !c.vp.RescaleToData(cs, axis) {
		c.log.Printf("chart: degenerate data range over %d candles, keeping previous view", len(cs))
	}
	if rescaleX {
		c.vp.ClampSticksAt(c.opts.bounds(), float64(cs[len(cs)-1].TimeOpen))
	} else {
		c.vp.ClampSticks(c.opts.bounds())
	}
	c.refreshVolume()

	if setLastPrice {
		last := cs[len(cs)-1]
		c.last = &last
	}
	c.Redraw()
}

// Redraw renders the current state.
func (c *Chart) Redraw() {
	c.pipe.Draw(c.canvas, render.Frame{
		Viewport: c.vp,
		Visible:  c.win.Visible(c.vp),
		Window:   c.win.Candles(),
		Last:     c.last,
		Pointer:  c.pointer,
		Panning:  c.dragging && c.opts.CaptureCursor,
		Box:      c.box,
	})
}

// Frame applies a finished fetch, renders, and asks for more data when the
// view nears either end of the window.
func (c *Chart) Frame(ctx context.Context) {
	if res, ok := c.win.Poll(); ok {
		c.applied(res)
	}
	c.Redraw()
	c.win.RequestMoreIfNeeded(ctx, c.vp)
}

// Settle blocks until no fetch is running, applying each result.
func (c *Chart) Settle(ctx context.Context) error {
	for c.win.InFlight() {
		res, ok := c.win.Wait(ctx)
		if !ok {
			return res.Err
		}
		c.applied(res)
	}
	return nil
}

func (c *Chart) applied(res window.Result) {
	if res.Changed() {
		c.refreshVolume()
	}
}

func (c *Chart) refreshVolume() {
	v, ok := market.MaxVolume(c.win.Candles())
	if !ok {
		v = 0
	}
	c.vp.SetVolume(v)
}

// PointerMove drags the open selection corner, or pans while dragging.
// dx and dy are the pointer movement since the last event.
func (c *Chart) PointerMove(x, y, dx, dy float64) {
	c.pointer = render.Pointer{X: x, Y: y}
	if c.box != nil && !c.box.Locked {
		c.box.Drag(x, y)
		return
	}
	if c.dragging {
		c.vp.Pan(dx, dy)
	}
}

// PointerDown locks an open selection, starts a new one with shift, or
// starts panning and drops the selection.
func (c *Chart) PointerDown(x, y float64, shift bool) {
	if c.box != nil && !c.box.Locked {
		c.box.Locked = true
		return
	}
	if shift {
		c.box = selection.Start(x, y)
		return
	}
	c.dragging = true
	c.box = nil
}

func (c *Chart) PointerUp() { c.dragging = false }

func (c *Chart) PointerLeave() { c.pointer = render.Outside }

// Wheel zooms out for positive deltaY and in otherwise. With ctrl it zooms
// prices and volume, without it time within the stick bounds. It reports
// whether the view changed.
func (c *Chart) Wheel(deltaY float64, ctrl bool) bool {
	factor := 1 / zoomStep
	if deltaY > 0 {
		factor = zoomStep
	}

	if ctrl {
		var p1, p2 float64
		if c.box != nil {
			p1, p2 = c.vp.ToDomainY(c.box.Y1), c.vp.ToDomainY(c.box.Y2)
		}
		if !c.vp.ZoomPrice(factor) {
			return false
		}
		if c.box != nil {
			c.box.Y1, c.box.Y2 = c.vp.ToScreenY(p1), c.vp.ToScreenY(p2)
		}
		return true
	}

	var t1, t2 float64
	if c.box != nil {
		t1, t2 = c.vp.ToDomainX(c.box.X1), c.vp.ToDomainX(c.box.X2)
	}
	if !c.vp.ZoomTime(factor, c.opts.bounds()) {
		return false
	}
	if c.box != nil {
		c.box.X1, c.box.X2 = c.vp.ToScreenX(t1), c.vp.ToScreenX(t2)
	}
	return true
}

// DoubleClick fits the price range to the middle MaxSticks candles of the
// window, or to the whole window when MaxSticks is unset.
func (c *Chart) DoubleClick() bool {
	cs := c.win.Candles()
	n := len(cs)
	start := 0
	if c.opts.MaxSticks > 0 {
		start = int(math.Ceil(float64(n-c.opts.MaxSticks) / 2))
	}
	if start < 0 {
		start = 0
	}
	end := n - start
	if end <= start {
		return false
	}
	return c.vp.RescaleToData(cs[start:end], viewport.AxisY)
}
