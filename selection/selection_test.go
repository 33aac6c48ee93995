package selection

import (
	"math"
	"strconv"
	"testing"

	"github.com/KDVMan/candlechart/format"
	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatMinutes(n int, vol float64) []market.Candle {
	cs := make([]market.Candle, n)
	for i := range cs {
		cs[i] = market.Candle{TimeOpen: int64(i) * market.Minute, Open: 1, High: 1, Low: 1, Close: 1, Volume: vol}
	}
	return cs
}

func TestAnalyzeDomainInclusive(t *testing.T) {
	cs := flatMinutes(1000, 10)
	s := AnalyzeDomain(float64(100*market.Minute), float64(200*market.Minute), 100, 110, false, cs)

	assert.Equal(t, 101, s.Bars)
	assert.Equal(t, 1010.0, s.Volume)
	assert.Equal(t, 10.0, s.Delta)
	assert.InDelta(t, 10.0, s.Percent, 1e-12)
	assert.Equal(t, "2 h", s.Span.String())
}

func TestAnalyzePixelBox(t *testing.T) {
	cs := flatMinutes(1000, 10)
	vp := viewport.New(1000, 500)
	require.True(t, vp.SetX(viewport.Range{Low: 0, High: float64(1000 * market.Minute)}))
	require.True(t, vp.SetY(viewport.Range{Low: 0, High: 500}))

	// dragged right and up: from price 100 to price 150
	b := Start(100, 400)
	b.Drag(200, 350)
	s := Analyze(b, vp, cs)

	assert.Equal(t, 101, s.Bars)
	assert.Equal(t, 1010.0, s.Volume)
	assert.InDelta(t, 50, s.Delta, 1e-9)
	assert.InDelta(t, 50, s.Percent, 1e-9)
	assert.True(t, b.Upward())

	// same box dragged right to left and downward flips both signs
	b = Start(200, 350)
	b.Drag(100, 400)
	s = Analyze(b, vp, cs)
	assert.Equal(t, -101, s.Bars)
	assert.InDelta(t, -50, s.Delta, 1e-9)
	assert.InDelta(t, -100.0/3, s.Percent, 1e-9)
	assert.False(t, b.Upward())
}

func TestAnalyzeSkipsNaNVolume(t *testing.T) {
	cs := flatMinutes(10, 5)
	cs[3].Volume = math.NaN()
	s := AnalyzeDomain(0, float64(9*market.Minute), 1, 1, false, cs)
	assert.Equal(t, 10, s.Bars)
	assert.Equal(t, 45.0, s.Volume)
}

func TestLockedBoxIgnoresDrag(t *testing.T) {
	b := Start(10, 10)
	assert.True(t, b.Drag(50, 60))
	b.Locked = true
	assert.False(t, b.Drag(70, 80))

	x1, y1, x2, y2 := b.Rect()
	assert.Equal(t, []float64{10, 10, 50, 60}, []float64{x1, y1, x2, y2})
}

func TestSummaryLines(t *testing.T) {
	s := Summary{Delta: -2.5, Percent: -1.234, Bars: -12, Volume: 1_234_567, Span: format.Span{Hours: 3, Minutes: 40}}
	lines := s.Lines(func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) })

	assert.Equal(t, "-2.50 (-1.23%)", lines[0])
	assert.Equal(t, "-12 bars, 4 h", lines[1])
	assert.Equal(t, "Vol 1.235M", lines[2])
}
