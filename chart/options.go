package chart

import (
	"fmt"
	"time"

	"github.com/KDVMan/candlechart/render"
	"github.com/KDVMan/candlechart/viewport"
	"github.com/KDVMan/candlechart/window"
)

// Options are the scale constraints and behaviour switches of a Chart.
type Options struct {
	MinSticks int // fewest candles on screen, 0 for no limit
	MaxSticks int // most candles on screen, 0 for no limit

	MaxValPercentage float64 // tallest volume bar as a share of chart height
	GapSizeDesired   float64 // pixels between candle bodies
	BlockSize        int     // candles per fetch
	CaptureCursor    bool    // hide the crosshair while panning

	FetchTimeout time.Duration
	Fetcher      window.Fetcher
	Styles       render.Styles

	// OnData runs on the fetch goroutine when a block is ready to apply.
	// It must not touch the Chart; schedule a Frame instead.
	OnData func()
}

func DefaultOptions() Options {
	return Options{
		MaxValPercentage: 0.2,
		GapSizeDesired:   1,
		BlockSize:        window.DefaultBlockSize,
		CaptureCursor:    true,
		Styles:           render.DefaultStyles(),
	}
}

func (o Options) Validate() error {
	if o.MinSticks < 0 {
		return fmt.Errorf("chart.min_sticks must not be negative")
	}
	if o.MaxSticks < 0 {
		return fmt.Errorf("chart.max_sticks must not be negative")
	}
	if o.MinSticks > 0 && o.MaxSticks > 0 && o.MinSticks > o.MaxSticks {
		return fmt.Errorf("chart.min_sticks (%d) exceeds chart.max_sticks (%d)", o.MinSticks, o.MaxSticks)
	}
	if !(o.MaxValPercentage > 0 && o.MaxValPercentage <= 1) {
		return fmt.Errorf("chart.max_value_percentage must be in (0, 1]")
	}
	if o.GapSizeDesired < 0 {
		return fmt.Errorf("chart.gap_size must not be negative")
	}
	if o.BlockSize <= 0 {
		return fmt.Errorf("chart.block_size must be positive")
	}
	if o.FetchTimeout < 0 {
		return fmt.Errorf("chart.fetch_timeout must not be negative")
	}
	return nil
}

func (o Options) bounds() viewport.Bounds {
	return viewport.Bounds{MinSticks: o.MinSticks, MaxSticks: o.MaxSticks}
}

func (o Options) window() window.Options {
	return window.Options{
		BlockSize: o.BlockSize,
		MaxSticks: o.MaxSticks,
		Timeout:   o.FetchTimeout,
		OnResult:  o.OnData,
	}
}

// withDefaults fills an unset style table.
func (o Options) withDefaults() Options {
	if o.Styles == (render.Styles{}) {
		o.Styles = render.DefaultStyles()
	}
	return o
}
