package chart

import (
	"context"
	"io"
	"log"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/render"
	"github.com/KDVMan/candlechart/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = log.New(io.Discard, "", 0)

func minutes(from, n int) []market.Candle {
	cs := make([]market.Candle, n)
	for i := range cs {
		k := from + i
		cs[i] = market.Candle{
			TimeOpen: int64(k) * market.Minute,
			Open:     float64(k),
			High:     float64(k) + 10,
			Low:      float64(k),
			Close:    float64(k) + 5,
			Volume:   float64(1 + k%11),
		}
	}
	return cs
}

func newChart(t *testing.T, opts Options) (*Chart, *render.Recorder) {
	t.Helper()
	rec := &render.Recorder{}
	ch, err := New(rec, render.FixedMeasurer{FontSize: 10}, opts, quiet)
	require.NoError(t, err)
	ch.SetGeometry(1060, 520, 10)
	return ch, rec
}

func boundedOptions() Options {
	opts := DefaultOptions()
	opts.MinSticks = 10
	opts.MaxSticks = 100
	return opts
}

func TestNew(t *testing.T) {
	m := render.FixedMeasurer{FontSize: 10}

	_, err := New(nil, m, DefaultOptions(), quiet)
	assert.ErrorIs(t, err, ErrNoCanvas)

	_, err = New(&render.Recorder{}, nil, DefaultOptions(), quiet)
	assert.ErrorIs(t, err, ErrNoMeasurer)

	bad := DefaultOptions()
	bad.BlockSize = 0
	_, err = New(&render.Recorder{}, m, bad, quiet)
	assert.EqualError(t, err, "chart.block_size must be positive")

	ch, err := New(&render.Recorder{}, m, Options{MaxValPercentage: 0.5, BlockSize: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, render.DefaultStyles(), ch.Options().Styles)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		errMsg string
	}{
		{"defaults", func(*Options) {}, ""},
		{"negative min", func(o *Options) { o.MinSticks = -1 }, "chart.min_sticks must not be negative"},
		{"negative max", func(o *Options) { o.MaxSticks = -1 }, "chart.max_sticks must not be negative"},
		{"min over max", func(o *Options) { o.MinSticks, o.MaxSticks = 50, 10 }, "chart.min_sticks (50) exceeds chart.max_sticks (10)"},
		{"zero value share", func(o *Options) { o.MaxValPercentage = 0 }, "chart.max_value_percentage must be in (0, 1]"},
		{"value share over one", func(o *Options) { o.MaxValPercentage = 1.5 }, "chart.max_value_percentage must be in (0, 1]"},
		{"negative gap", func(o *Options) { o.GapSizeDesired = -1 }, "chart.gap_size must not be negative"},
		{"negative timeout", func(o *Options) { o.FetchTimeout = -time.Second }, "chart.fetch_timeout must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			err := o.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.errMsg)
			}
		})
	}
}

func TestSetGeometry(t *testing.T) {
	ch, _ := newChart(t, DefaultOptions())
	g := ch.Geometry()

	// 12 runes at 6px
	assert.InDelta(t, 72, g.LegendWidth, 1e-9)
	assert.Equal(t, 20.0, g.LegendHeight)
	assert.InDelta(t, 988, ch.Viewport().Width, 1e-9)
	assert.Equal(t, 500.0, ch.Viewport().Height)
}

func TestInitialLoad(t *testing.T) {
	ch, rec := newChart(t, boundedOptions())
	cs := minutes(0, 2000)
	ch.Update(cs, true, true, true)

	vp := ch.Viewport()
	assert.InDelta(t, 100, vp.OnscreenSticks(), 1e-6)
	assert.Equal(t, float64(cs[1999].TimeOpen), vp.X.High, "newest candle at the right edge")
	assert.InDelta(t, float64(cs[1900].TimeOpen), vp.X.Low, 1e-3)
	assert.Equal(t, 0.0, vp.Y.Low)
	assert.Equal(t, 2009.0, vp.Y.High)
	assert.Equal(t, 11.0, vp.V)
	assert.Equal(t, 11.0, vp.MaxV)
	assert.NotEmpty(t, rec.Primitives)
}

func TestInitialLoadUnbounded(t *testing.T) {
	ch, _ := newChart(t, DefaultOptions())
	cs := minutes(0, 2000)
	ch.Update(cs, true, true, true)

	vp := ch.Viewport()
	assert.Equal(t, float64(cs[0].TimeOpen), vp.X.Low)
	assert.Equal(t, float64(cs[1999].TimeOpen), vp.X.High)
}

func TestUpdateDropsSelectionBox(t *testing.T) {
	ch, rec := newChart(t, boundedOptions())
	ch.Update(minutes(0, 500), true, true, true)

	ch.PointerDown(100, 100, true)
	ch.PointerMove(300, 200, 200, 100)
	ch.PointerDown(300, 200, false)
	require.NotNil(t, ch.Box())
	require.True(t, ch.Box().Locked)

	rec.Reset()
	ch.Update(minutes(10_000, 500), true, true, true)
	assert.Nil(t, ch.Box())
	for _, r := range rec.Rects() {
		assert.Zero(t, r.Alpha, "no selection fill after replacing the data")
	}

	// shift starts a fresh box on the new data
	ch.PointerDown(50, 50, true)
	assert.NotNil(t, ch.Box())
	assert.False(t, ch.Box().Locked)
}

func TestWheelRespectsStickBounds(t *testing.T) {
	ch, _ := newChart(t, boundedOptions())
	ch.Update(minutes(0, 500), true, true, true)
	vp := ch.Viewport()

	assert.False(t, ch.Wheel(1, false), "zooming out past max sticks")
	assert.InDelta(t, 100, vp.OnscreenSticks(), 1e-6)

	assert.True(t, ch.Wheel(-1, false))
	assert.InDelta(t, 91, vp.OnscreenSticks(), 1e-6)

	zoomed := 0
	for ch.Wheel(-1, false) {
		zoomed++
		require.Less(t, zoomed, 100)
	}
	assert.GreaterOrEqual(t, vp.OnscreenSticks(), 10.0)
	assert.Less(t, vp.OnscreenSticks(), 11.1)
}

func TestWheelPriceZoom(t *testing.T) {
	ch, _ := newChart(t, boundedOptions())
	ch.Update(minutes(0, 500), true, true, true)
	vp := ch.Viewport()
	x, y, v := vp.X, vp.Y, vp.V

	assert.True(t, ch.Wheel(1, true))
	assert.InDelta(t, y.Width()*1.1, vp.Y.Width(), 1e-9)
	assert.InDelta(t, y.Mid(), vp.Y.Mid(), 1e-9)
	assert.InDelta(t, v*1.1, vp.V, 1e-9)
	assert.Equal(t, x, vp.X)
}

func TestWheelKeepsBoxInDomain(t *testing.T) {
	ch, _ := newChart(t, boundedOptions())
	ch.Update(minutes(0, 500), true, true, true)
	vp := ch.Viewport()

	ch.PointerDown(100, 100, true)
	ch.PointerMove(300, 200, 200, 100)
	ch.PointerDown(300, 200, false)
	b := ch.Box()
	require.NotNil(t, b)
	require.True(t, b.Locked)

	t1, t2 := vp.ToDomainX(b.X1), vp.ToDomainX(b.X2)
	p1, p2 := vp.ToDomainY(b.Y1), vp.ToDomainY(b.Y2)

	require.True(t, ch.Wheel(-1, false))
	assert.InDelta(t, t1, vp.ToDomainX(b.X1), 1e-3)
	assert.InDelta(t, t2, vp.ToDomainX(b.X2), 1e-3)
	assert.NotEqual(t, 100.0, b.X1)

	require.True(t, ch.Wheel(1, true))
	assert.InDelta(t, p1, vp.ToDomainY(b.Y1), 1e-9)
	assert.InDelta(t, p2, vp.ToDomainY(b.Y2), 1e-9)
}

func TestPointerStateMachine(t *testing.T) {
	ch, rec := newChart(t, boundedOptions())
	ch.Update(minutes(0, 500), true, true, true)
	vp := ch.Viewport()

	// shift-press opens a box that follows the pointer
	ch.PointerDown(10, 20, true)
	ch.PointerMove(50, 60, 40, 40)
	b := ch.Box()
	require.NotNil(t, b)
	assert.Equal(t, 50.0, b.X2)
	assert.Equal(t, 60.0, b.Y2)

	// the next press locks it, later moves leave it alone
	ch.PointerDown(50, 60, false)
	assert.True(t, b.Locked)
	ch.PointerMove(80, 90, 30, 30)
	assert.Equal(t, 50.0, b.X2)

	// a plain press drops the box and starts panning
	ch.PointerDown(80, 90, false)
	assert.Nil(t, ch.Box())
	x := vp.X
	ch.PointerMove(90, 90, 10, 0)
	assert.InDelta(t, x.Low-10*x.Width()/vp.Width, vp.X.Low, 1e-6)

	crosshair := func() int {
		rec.Reset()
		ch.Redraw()
		n := 0
		for _, p := range rec.Paths() {
			if p.Color == ch.Options().Styles.Crosshair {
				n++
			}
		}
		return n
	}
	assert.Zero(t, crosshair(), "hidden while panning with capture")

	ch.PointerUp()
	x = vp.X
	ch.PointerMove(100, 90, 10, 0)
	assert.Equal(t, x, vp.X)
	assert.Equal(t, 2, crosshair())

	ch.PointerLeave()
	assert.Zero(t, crosshair())
}

func TestDoubleClickFitsMiddleSlice(t *testing.T) {
	ch, _ := newChart(t, boundedOptions())
	ch.Update(minutes(0, 500), true, false, true)
	vp := ch.Viewport()

	require.True(t, ch.DoubleClick())
	// slice [200, 300)
	assert.Equal(t, 200.0, vp.Y.Low)
	assert.Equal(t, 309.0, vp.Y.High)
}

func TestDoubleClickSmallWindow(t *testing.T) {
	ch, _ := newChart(t, boundedOptions())
	ch.Update(minutes(0, 50), true, false, true)

	require.True(t, ch.DoubleClick())
	assert.Equal(t, 0.0, ch.Viewport().Y.Low)
	assert.Equal(t, 59.0, ch.Viewport().Y.High)
}

func TestConfigureClampsAndRejects(t *testing.T) {
	ch, _ := newChart(t, DefaultOptions())
	ch.Update(minutes(0, 500), true, true, true)
	assert.InDelta(t, 500, ch.Viewport().OnscreenSticks(), 1e-6)

	bad := boundedOptions()
	bad.MinSticks = 200
	assert.Error(t, ch.Configure(bad))
	assert.Equal(t, 0, ch.Options().MaxSticks)

	require.NoError(t, ch.Configure(boundedOptions()))
	assert.InDelta(t, 100, ch.Viewport().OnscreenSticks(), 1e-6)
	assert.Equal(t, 100+4*window.DefaultBlockSize, ch.Window().MaxSize())
}

type seriesFetcher struct {
	all   []market.Candle
	calls atomic.Int32
}

func (s *seriesFetcher) Fetch(_ context.Context, _ window.Direction, end int64) ([]market.Candle, error) {
	s.calls.Add(1)
	idx := sort.Search(len(s.all), func(i int) bool { return s.all[i].TimeOpen > end })
	lo := idx - window.DefaultBlockSize
	if lo < 0 {
		lo = 0
	}
	return append([]market.Candle(nil), s.all[lo:idx]...), nil
}

func TestFrameLoadsMoreData(t *testing.T) {
	all := minutes(0, 5000)
	f := &seriesFetcher{all: all}
	var notified atomic.Int32

	opts := boundedOptions()
	opts.Fetcher = f
	opts.OnData = func() { notified.Add(1) }
	ch, _ := newChart(t, opts)
	ch.Update(all[3000:], true, true, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frames := 0
	for ; frames < 10; frames++ {
		ch.Frame(ctx)
		if !ch.Pending() {
			break
		}
		require.NoError(t, ch.Settle(ctx))
	}

	// one older block, then a newer one that found nothing
	assert.Equal(t, 2, frames)
	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, 3999, ch.Window().Len())
	assert.Equal(t, int64(1001*market.Minute), ch.Window().Candles()[0].TimeOpen)
	assert.True(t, ch.Window().Limits().HasHigh)
	assert.False(t, ch.Window().Limits().HasLow)
	assert.Eventually(t, func() bool { return notified.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestUpdateDropsLastPriceWhenAsked(t *testing.T) {
	ch, rec := newChart(t, boundedOptions())
	cs := minutes(0, 200)
	ch.Update(cs, true, true, false)

	for _, p := range rec.Paths() {
		assert.Empty(t, p.Dash, "no last price line")
	}
}
