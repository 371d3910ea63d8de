package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"sketchbook/internal/domain"
	"sketchbook/internal/usecase/geometry"
)

// a4WidthMM is the printable width the canvas is scaled into.
const a4WidthMM = 190.0

// ScenePDF renders the element list to a single-page PDF. Shapes are
// flattened to polylines with the same sampler the animation uses, so
// the export matches what was drawn on screen.
func ScenePDF(elements []domain.DrawingElement, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render pdf: invalid size %dx%d", width, height)
	}
	scale := a4WidthMM / float64(width)

	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	p.SetDrawColor(26, 26, 26)
	p.SetTextColor(26, 26, 26)
	p.SetFont("Courier", "", 9)

	for _, el := range elements {
		switch el.Kind {
		case domain.ElementShape:
			drawPolyline(p, geometry.SamplePoints(el.Shape), shapeWidth(el.Shape), scale)
		case domain.ElementStroke:
			if el.Stroke != nil {
				drawPolyline(p, geometry.ParsePath(el.Stroke.D), el.Stroke.Width, scale)
			}
		case domain.ElementAscii:
			if el.Ascii != nil {
				drawAscii(p, el.Ascii, scale)
			}
		}
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawPolyline(p *gofpdf.Fpdf, pts []domain.Point, width float64, scale float64) {
	if len(pts) < 2 {
		return
	}
	lw := widthOr(width) * scale
	if lw < 0.2 {
		lw = 0.2
	}
	p.SetLineWidth(lw)
	for i := 1; i < len(pts); i++ {
		p.Line(
			pts[i-1].X*scale, pts[i-1].Y*scale,
			pts[i].X*scale, pts[i].Y*scale,
		)
	}
}

func drawAscii(p *gofpdf.Fpdf, block *domain.AsciiBlock, scale float64) {
	y := block.Y * scale
	for _, line := range strings.Split(block.Text, "\n") {
		if line != "" {
			p.Text(block.X*scale, y, line)
		}
		y += asciiLineHeight * scale
	}
}

// shapeWidth pulls the stroke width off whichever variant carries it.
func shapeWidth(s domain.Shape) float64 {
	switch v := s.(type) {
	case domain.Line:
		return v.Width
	case domain.Circle:
		return v.Width
	case domain.Rect:
		return v.Width
	case domain.Curve:
		return v.Width
	case domain.Path:
		return v.Width
	case domain.Erase:
		return v.Width
	default:
		return 0
	}
}
