package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KDVMan/candlechart/chart"
	"github.com/KDVMan/candlechart/config"
	"github.com/KDVMan/candlechart/render"
	"github.com/KDVMan/candlechart/window"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a chart to SVG",
	Long: `Render loads the newest block of candles from the configured source,
replays the requested gestures, lets the window fetch whatever the final
view needs, and writes the result as SVG.

Example:
  candlechart render -f chart.yaml -o eurusd.svg --zoom 3 --pan 200 \
    --box 300,200,500,350 --cursor 640,300`,
	RunE: runRender,
}

var (
	renderConfig    string
	renderOutput    string
	renderZoom      int
	renderPriceZoom int
	renderPan       float64
	renderBox       string
	renderCursor    string
	renderFit       bool
	renderRounds    int
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderConfig, "file", "f", "", "path to config file (defaults when empty)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "chart.svg", "output SVG path")
	renderCmd.Flags().IntVar(&renderZoom, "zoom", 0, "wheel steps on the time axis (positive zooms in)")
	renderCmd.Flags().IntVar(&renderPriceZoom, "price-zoom", 0, "wheel steps on the price axis (positive zooms in)")
	renderCmd.Flags().Float64Var(&renderPan, "pan", 0, "horizontal drag in pixels (positive reveals older candles)")
	renderCmd.Flags().StringVar(&renderBox, "box", "", "selection corners x1,y1,x2,y2 in pixels")
	renderCmd.Flags().StringVar(&renderCursor, "cursor", "", "crosshair position x,y in pixels")
	renderCmd.Flags().BoolVar(&renderFit, "fit", false, "fit prices to the middle of the window (double click)")
	renderCmd.Flags().IntVar(&renderRounds, "rounds", 8, "maximum fetch rounds before writing")
}

func runRender(cmd *cobra.Command, args []string) error {
	box, err := parseFloats(renderBox, 4)
	if err != nil {
		return fmt.Errorf("bad --box: %w", err)
	}
	cursor, err := parseFloats(renderCursor, 2)
	if err != nil {
		return fmt.Errorf("bad --cursor: %w", err)
	}

	cfg := config.Default()
	if renderConfig != "" {
		if cfg, err = config.LoadFromFile(renderConfig); err != nil {
			return err
		}
	}
	cfg.ApplyEnv()

	f, err := openFeed(cfg)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	seed, err := f.Fetch(ctx, window.Backward, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("initial fetch: %w", err)
	}
	if len(seed) == 0 {
		return fmt.Errorf("source returned no candles")
	}

	opts := cfg.ChartOptions()
	opts.Fetcher = f

	w, h, fs := float64(cfg.Canvas.Width), float64(cfg.Canvas.Height), cfg.Canvas.FontSize
	svg := render.NewSVG(w, h, fs)
	ch, err := chart.New(svg, render.FixedMeasurer{FontSize: fs}, opts, logger)
	if err != nil {
		return err
	}
	ch.SetGeometry(w, h, fs)
	ch.Update(seed, true, true, true)

	replay(ch, box, cursor)

	for i := 0; i < renderRounds; i++ {
		ch.Frame(ctx)
		if !ch.Pending() {
			break
		}
		if err := ch.Settle(ctx); err != nil {
			logger.Printf("render: fetch: %v", err)
			break
		}
	}

	svg.Reset()
	ch.Redraw()

	out, err := os.Create(renderOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	if _, err := svg.WriteTo(out); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}

	x := ch.Viewport().X
	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d candles (%d in window, %.0f on screen) to %s\n",
		len(ch.Window().Visible(ch.Viewport())), ch.Window().Len(), ch.Viewport().OnscreenSticks(), renderOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s .. %s\n",
		time.UnixMilli(int64(x.Low)).UTC().Format(time.RFC3339), time.UnixMilli(int64(x.High)).UTC().Format(time.RFC3339))
	return nil
}

// replay feeds the requested gestures through the chart's input handlers.
func replay(ch *chart.Chart, box, cursor []float64) {
	for i := 0; i < abs(renderZoom); i++ {
		ch.Wheel(-float64(sign(renderZoom)), false)
	}
	for i := 0; i < abs(renderPriceZoom); i++ {
		ch.Wheel(-float64(sign(renderPriceZoom)), true)
	}

	g := ch.Geometry()
	cx, cy := g.ChartWidth()/2, g.ChartHeight()/2
	if renderPan != 0 {
		ch.PointerDown(cx, cy, false)
		ch.PointerMove(cx+renderPan, cy, renderPan, 0)
		ch.PointerUp()
	}

	if renderFit {
		ch.DoubleClick()
	}

	if box != nil {
		ch.PointerDown(box[0], box[1], true)
		ch.PointerMove(box[2], box[3], box[2]-box[0], box[3]-box[1])
		ch.PointerDown(box[2], box[3], false)
		ch.PointerUp()
	}

	if cursor != nil {
		ch.PointerMove(cursor[0], cursor[1], 0, 0)
	} else {
		ch.PointerLeave()
	}
}

func parseFloats(s string, n int) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
