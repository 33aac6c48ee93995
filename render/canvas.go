// Package render turns the chart state into drawing primitives for an
// abstract 2D canvas.
package render

import "github.com/KDVMan/candlechart/format"

type Point struct {
	X, Y float64
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Primitive is one of Rect, Path or Label.
type Primitive interface {
	primitive()
}

// Rect is a filled rectangle. Alpha 0 means opaque.
type Rect struct {
	X, Y, W, H float64
	Color      string
	Alpha      float64
}

// Path is a set of polylines stroked with one style. An empty Dash is solid.
type Path struct {
	Points [][]Point
	Color string
	Dash  []float64
}

// Label is a line of text anchored at (X, Y) on its baseline.
type Label struct {
	Text  string
	X, Y  float64
	Align Align
	Color string
}

func (Rect) primitive()  {}
func (Path) primitive()  {}
func (Label) primitive() {}

// Canvas is the drawing surface. Fonts are resolved by the implementation.
type Canvas interface {
	FillRect(r Rect)
	Stroke(p Path)
	Text(l Label)
}

// TextMeasurer reports rendered text width in pixels.
type TextMeasurer = format.Measurer

// FixedMeasurer approximates a proportional font at 0.6 em per rune.
type FixedMeasurer struct {
	FontSize float64
}

func (m FixedMeasurer) MeasureText(s string) float64 {
	return float64(len([]rune(s))) * m.FontSize * 0.6
}

// Recorder is a Canvas that keeps every primitive in draw order.
type Recorder struct {
	Primitives []Primitive
}

func (r *Recorder) FillRect(x Rect) { r.Primitives = append(r.Primitives, x) }
func (r *Recorder) Stroke(p Path)   { r.Primitives = append(r.Primitives, p) }
func (r *Recorder) Text(l Label)    { r.Primitives = append(r.Primitives, l) }

func (r *Recorder) Reset() { r.Primitives = r.Primitives[:0] }

func (r *Recorder) Rects() []Rect {
	var out []Rect
	for _, p := range r.Primitives {
		if x, ok := p.(Rect); ok {
			out = append(out, x)
		}
	}
	return out
}

func (r *Recorder) Paths() []Path {
	var out []Path
	for _, p := range r.Primitives {
		if x, ok := p.(Path); ok {
			out = append(out, x)
		}
	}
	return out
}

func (r *Recorder) Labels() []Label {
	var out []Label
	for _, p := range r.Primitives {
		if x, ok := p.(Label); ok {
			out = append(out, x)
		}
	}
	return out
}
