package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchbook/internal/domain"
)

func TestSampleLine(t *testing.T) {
	pts := SamplePoints(domain.Line{From: domain.Point{X: 1, Y: 2}, To: domain.Point{X: 3, Y: 4}})
	require.Len(t, pts, 2)
	assert.Equal(t, domain.Point{X: 1, Y: 2}, pts[0])
	assert.Equal(t, domain.Point{X: 3, Y: 4}, pts[1])
}

func TestSampleCircleClosedLoop(t *testing.T) {
	pts := SamplePoints(domain.Circle{Center: domain.Point{X: 10, Y: -5}, Radius: 7})
	require.Len(t, pts, 33)
	assert.InDelta(t, pts[0].X, pts[32].X, 1e-9)
	assert.InDelta(t, pts[0].Y, pts[32].Y, 1e-9)

	for _, p := range pts {
		r := math.Hypot(p.X-10, p.Y+5)
		assert.InDelta(t, 7, r, 1e-9)
	}
}

func TestSampleCircleZeroRadius(t *testing.T) {
	assert.Empty(t, SamplePoints(domain.Circle{Center: domain.Point{X: 1, Y: 1}}))
}

func TestSampleRectTracesCornersClosed(t *testing.T) {
	pts := SamplePoints(domain.Rect{X: 2, Y: 3, W: 10, H: 20})
	require.Len(t, pts, 5)
	assert.Equal(t, pts[0], pts[4])
	assert.Equal(t, domain.Point{X: 12, Y: 3}, pts[1])
	assert.Equal(t, domain.Point{X: 12, Y: 23}, pts[2])
	assert.Equal(t, domain.Point{X: 2, Y: 23}, pts[3])
}

func TestSampleCurveVariants(t *testing.T) {
	two := SamplePoints(domain.Curve{Points: []domain.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}})
	assert.Len(t, two, 2)

	quad := SamplePoints(domain.Curve{Points: []domain.Point{{X: 0, Y: 0}, {X: 5, Y: 10}, {X: 10, Y: 0}}})
	require.Len(t, quad, 1+bezierSteps)
	assert.Equal(t, domain.Point{X: 0, Y: 0}, quad[0])
	assert.InDelta(t, 10, quad[len(quad)-1].X, 1e-9)
	assert.InDelta(t, 0, quad[len(quad)-1].Y, 1e-9)
	// Quadratic midpoint sits halfway toward the control point.
	assert.InDelta(t, 5, quad[bezierSteps/2].Y, 1e-9)

	cubic := SamplePoints(domain.Curve{Points: []domain.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}})
	assert.Len(t, cubic, 1+bezierSteps)

	poly := SamplePoints(domain.Curve{Points: []domain.Point{{}, {X: 1}, {X: 2}, {X: 3}, {X: 4}}})
	assert.Len(t, poly, 5)

	assert.Empty(t, SamplePoints(domain.Curve{}))
	assert.Empty(t, SamplePoints(domain.Curve{Points: []domain.Point{{X: 1, Y: 1}}}))
}

func TestSampleNilShape(t *testing.T) {
	assert.Empty(t, SamplePoints(nil))
}

func TestPathLength(t *testing.T) {
	pts := []domain.Point{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 14}}
	assert.InDelta(t, 15, PathLength(pts), 1e-9)
	assert.Zero(t, PathLength(nil))
	assert.Zero(t, PathLength(pts[:1]))
}
