// Package export renders the committed scene to portable formats: SVG
// markup, PNG (the snapshot the actor looks at), and PDF.
package export

import (
	"encoding/xml"
	"fmt"
	"strings"

	"sketchbook/internal/domain"
	"sketchbook/internal/usecase/geometry"
)

const (
	defaultStrokeColor = "#1a1a1a"
	defaultStrokeWidth = 2.0
	backgroundColor    = "#fffef8"
	asciiLineHeight    = 16.0
)

// SceneSVG renders the element list to a standalone SVG document.
// Elements are painted in commit order; erase strokes paint in the
// background color on top, so erasure never mutates earlier elements.
func SceneSVG(elements []domain.DrawingElement, width, height int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, width, height, backgroundColor)

	for _, el := range elements {
		switch el.Kind {
		case domain.ElementShape:
			writeShape(&b, el.Shape)
		case domain.ElementStroke:
			if el.Stroke != nil {
				writePath(&b, el.Stroke.D, el.Stroke.Color, el.Stroke.Width, false)
			}
		case domain.ElementAscii:
			if el.Ascii != nil {
				writeAscii(&b, el.Ascii)
			}
		}
	}

	b.WriteString(`</svg>`)
	return b.String()
}

func writeShape(b *strings.Builder, s domain.Shape) {
	switch v := s.(type) {
	case domain.Line:
		fmt.Fprintf(b, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="%g" stroke-linecap="round"/>`,
			v.From.X, v.From.Y, v.To.X, v.To.Y, colorOr(v.Color), widthOr(v.Width))
	case domain.Circle:
		fmt.Fprintf(b, `<circle cx="%g" cy="%g" r="%g" fill="none" stroke="%s" stroke-width="%g"/>`,
			v.Center.X, v.Center.Y, v.Radius, colorOr(v.Color), widthOr(v.Width))
	case domain.Rect:
		fmt.Fprintf(b, `<rect x="%g" y="%g" width="%g" height="%g" fill="none" stroke="%s" stroke-width="%g"/>`,
			v.X, v.Y, v.W, v.H, colorOr(v.Color), widthOr(v.Width))
	case domain.Curve:
		writePolyline(b, geometry.SamplePoints(v), colorOr(v.Color), widthOr(v.Width))
	case domain.Path:
		writePath(b, v.D, v.Color, v.Width, false)
	case domain.Erase:
		writePath(b, v.D, "", v.Width, true)
	}
}

func writePolyline(b *strings.Builder, pts []domain.Point, color string, width float64) {
	if len(pts) < 2 {
		return
	}
	var coords strings.Builder
	for i, p := range pts {
		if i > 0 {
			coords.WriteByte(' ')
		}
		fmt.Fprintf(&coords, "%g,%g", p.X, p.Y)
	}
	fmt.Fprintf(b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="%g" stroke-linecap="round" stroke-linejoin="round"/>`,
		coords.String(), color, width)
}

func writePath(b *strings.Builder, d, color string, width float64, erase bool) {
	if d == "" {
		return
	}
	stroke := colorOr(color)
	w := widthOr(width)
	if erase {
		stroke = backgroundColor
		// Erase strokes default wider than pen strokes.
		if width <= 0 {
			w = 16
		}
	}
	fmt.Fprintf(b, `<path d="%s" fill="none" stroke="%s" stroke-width="%g" stroke-linecap="round" stroke-linejoin="round"/>`,
		escapeAttr(d), stroke, w)
}

func writeAscii(b *strings.Builder, block *domain.AsciiBlock) {
	color := colorOr(block.Color)
	fmt.Fprintf(b, `<text x="%g" y="%g" fill="%s" font-family="monospace" font-size="14" xml:space="preserve">`,
		block.X, block.Y, color)
	for i, line := range strings.Split(block.Text, "\n") {
		var escaped strings.Builder
		xml.EscapeText(&escaped, []byte(line))
		fmt.Fprintf(b, `<tspan x="%g" dy="%g">%s</tspan>`,
			block.X, dyFor(i), escaped.String())
	}
	b.WriteString(`</text>`)
}

func dyFor(lineIndex int) float64 {
	if lineIndex == 0 {
		return 0
	}
	return asciiLineHeight
}

func colorOr(c string) string {
	if c == "" {
		return defaultStrokeColor
	}
	return c
}

func widthOr(w float64) float64 {
	if w <= 0 {
		return defaultStrokeWidth
	}
	return w
}

func escapeAttr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
