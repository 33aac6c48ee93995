package ticks

import (
	"math"
	"testing"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceFactor(t *testing.T) {
	tests := []struct {
		name   string
		r      viewport.Range
		height float64
		minGap float64
		want   float64
	}{
		{"thousand refined to hundreds", viewport.Range{Low: 0, High: 1000}, 400, 25, 100},
		{"tight chart falls back to thirds", viewport.Range{Low: 0, High: 1000}, 200, 25, 1000.0 / 3},
		{"wide range keeps base", viewport.Range{Low: 0, High: 5000}, 400, 25, 1000},
		{"sub unit", viewport.Range{Low: 0, High: 0.01}, 400, 2, 0.001},
		{"fx quotes", viewport.Range{Low: 1.08, High: 1.09}, 400, 2, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PriceFactor(tt.r, tt.height, tt.minGap), tt.want*1e-9)
		})
	}
}

func TestPriceFactorDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, PriceFactor(viewport.Range{Low: 1, High: 1}, 400, 2))
	assert.Equal(t, 0.0, PriceFactor(viewport.Range{Low: 0, High: math.Inf(1)}, 400, 2))
	assert.Nil(t, Price(viewport.Range{Low: 1, High: 1}, 400, 2))
}

func TestPriceTicks(t *testing.T) {
	got := Price(viewport.Range{Low: 0, High: 1000}, 400, 2)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Len(t, got, 11)
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, 1000, got[len(got)-1], 1e-9)

	got = Price(viewport.Range{Low: 0, High: 0.01}, 400, 2)
	require.GreaterOrEqual(t, len(got), 2)
	assert.InDelta(t, 0.001, got[1]-got[0], 1e-12)

	got = Price(viewport.Range{Low: 123.4, High: 187.9}, 400, 2)
	for i, p := range got {
		assert.GreaterOrEqual(t, p, 123.4)
		assert.LessOrEqual(t, p, 187.9)
		if i > 0 {
			assert.Greater(t, p, got[i-1])
		}
	}
}

func TestTimeDelta(t *testing.T) {
	day := viewport.Range{Low: 0, High: float64(market.Day)}
	assert.Equal(t, market.Day, TimeDelta(day, 800, 100))

	hours := viewport.Range{Low: 0, High: float64(2 * market.Hour)}
	assert.Equal(t, 30*market.Minute, TimeDelta(hours, 800, 100))

	huge := viewport.Range{Low: 0, High: float64(1000 * market.Year)}
	assert.Equal(t, 10*market.Year, TimeDelta(huge, 800, 100))
}

func TestTimeTicksAligned(t *testing.T) {
	r := viewport.Range{Low: float64(17*market.Hour + 5*market.Minute), High: float64(3*market.Day + 2*market.Hour)}
	delta := TimeDelta(r, 800, 100)
	got := Time(r, 800, 100)
	require.NotEmpty(t, got)

	for _, tk := range got {
		assert.True(t, r.Contains(tk))
		assert.Equal(t, 0.0, math.Mod(tk, float64(delta)))
	}
	for i := 1; i < len(got); i++ {
		assert.Equal(t, float64(delta), got[i]-got[i-1])
	}
}
