package export

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchbook/internal/domain"
)

func sampleScene() []domain.DrawingElement {
	return []domain.DrawingElement{
		{Kind: domain.ElementShape, Origin: domain.OriginActor,
			Shape: domain.Line{From: domain.Point{X: 10, Y: 10}, To: domain.Point{X: 100, Y: 10}}},
		{Kind: domain.ElementShape, Origin: domain.OriginActor,
			Shape: domain.Circle{Center: domain.Point{X: 60, Y: 60}, Radius: 25, Color: "#c0392b"}},
		{Kind: domain.ElementStroke, Origin: domain.OriginHuman,
			Stroke: &domain.HumanStroke{D: "M 5 5 L 20 20 L 40 15", Width: 3}},
		{Kind: domain.ElementAscii, Origin: domain.OriginActor,
			Ascii: &domain.AsciiBlock{Text: "<( o.o )>\n  | |", X: 80, Y: 90}},
	}
}

func TestSceneSVGContainsAllElements(t *testing.T) {
	svg := SceneSVG(sampleScene(), 200, 150)

	assert.Contains(t, svg, `viewBox="0 0 200 150"`)
	assert.Contains(t, svg, `<line x1="10" y1="10" x2="100" y2="10"`)
	assert.Contains(t, svg, `<circle cx="60" cy="60" r="25"`)
	assert.Contains(t, svg, `stroke="#c0392b"`)
	assert.Contains(t, svg, `<path d="M 5 5 L 20 20 L 40 15"`)
	// Ascii art survives XML escaping.
	assert.Contains(t, svg, "&lt;( o.o )&gt;")
}

func TestSceneSVGEraseUsesBackgroundColor(t *testing.T) {
	svg := SceneSVG([]domain.DrawingElement{
		{Kind: domain.ElementShape, Shape: domain.Erase{D: "M 0 0 L 50 50"}},
	}, 100, 100)

	assert.Contains(t, svg, `stroke="`+backgroundColor+`"`)
}

func TestSceneSVGEmptyScene(t *testing.T) {
	svg := SceneSVG(nil, 100, 100)

	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "</svg>")
}

func TestRenderPNGProducesDecodableImage(t *testing.T) {
	data, err := NewRenderer().RenderPNG(sampleScene(), 200, 150)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 200, bounds.Dx())
	assert.Equal(t, 150, bounds.Dy())
}

func TestRenderPNGRejectsInvalidSize(t *testing.T) {
	_, err := NewRenderer().RenderPNG(nil, 0, 100)
	assert.Error(t, err)
}

func TestScenePDFProducesDocument(t *testing.T) {
	data, err := ScenePDF(sampleScene(), 1200, 800)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "missing PDF header")
	assert.Greater(t, len(data), 500)
}

func TestScenePDFRejectsInvalidSize(t *testing.T) {
	_, err := ScenePDF(nil, 1200, 0)
	assert.Error(t, err)
}
