package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
)

// SVG is a Canvas that writes an SVG document.
type SVG struct {
	Width, Height float64
	FontSize      float64
	FontFamily    string

	body bytes.Buffer
}

func NewSVG(width, height, fontSize float64) *SVG {
	return &SVG{Width: width, Height: height, FontSize: fontSize, FontFamily: "sans-serif"}
}

func (s *SVG) FillRect(r Rect) {
	x, y, w, h := r.X, r.Y, r.W, r.H
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	fmt.Fprintf(&s.body, "<rect x='%.2f' y='%.2f' width='%.2f' height='%.2f' fill='%s'", x, y, w, h, r.Color)
	if r.Alpha > 0 && r.Alpha < 1 {
		fmt.Fprintf(&s.body, " fill-opacity='%.2f'", r.Alpha)
	}
	s.body.WriteString("/>\n")
}

func (s *SVG) Stroke(p Path) {
	var d strings.Builder
	for _, line := range p.Points {
		for i, pt := range line {
			cmd := 'L'
			if i == 0 {
				cmd = 'M'
			}
			fmt.Fprintf(&d, "%c%.2f %.2f", cmd, pt.X, pt.Y)
		}
	}
	if d.Len() == 0 {
		return
	}
	fmt.Fprintf(&s.body, "<path d='%s' fill='none' stroke='%s' stroke-width='1'", d.String(), p.Color)
	if len(p.Dash) > 0 {
		dash := make([]string, len(p.Dash))
		for i, v := range p.Dash {
			dash[i] = fmt.Sprintf("%g", v)
		}
		fmt.Fprintf(&s.body, " stroke-dasharray='%s'", strings.Join(dash, ","))
	}
	s.body.WriteString("/>\n")
}

func (s *SVG) Text(l Label) {
	anchor := "start"
	switch l.Align {
	case AlignCenter:
		anchor = "middle"
	case AlignRight:
		anchor = "end"
	}
	fmt.Fprintf(&s.body, "<text x='%.2f' y='%.2f' fill='%s' text-anchor='%s'>%s</text>\n",
		l.X, l.Y, l.Color, anchor, html.EscapeString(l.Text))
}

// Reset drops everything drawn so far.
func (s *SVG) Reset() { s.body.Reset() }

// Bytes returns the complete document.
func (s *SVG) Bytes() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%g' height='%g' viewBox='0 0 %g %g' font-family='%s' font-size='%g'>\n",
		s.Width, s.Height, s.Width, s.Height, s.FontFamily, s.FontSize)
	b.Write(s.body.Bytes())
	b.WriteString("</svg>\n")
	return b.Bytes()
}

func (s *SVG) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Bytes())
	return int64(n), err
}
