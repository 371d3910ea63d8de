package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchbook/internal/domain"
)

func TestParsePathMoveLineClose(t *testing.T) {
	pts := ParsePath("M 0 0 L 10 0 L 10 10 Z")
	require.Equal(t, []domain.Point{
		{X: 0, Y: 0},
		{X: 10, Y: 0},
		{X: 10, Y: 10},
		{X: 0, Y: 0},
	}, pts)
}

func TestParsePathImplicitLineto(t *testing.T) {
	// Coordinate pairs after a moveto continue as linetos.
	pts := ParsePath("M 0 0 10 0 10 10")
	require.Len(t, pts, 3)
	assert.Equal(t, domain.Point{X: 10, Y: 10}, pts[2])
}

func TestParsePathRelativeCommands(t *testing.T) {
	pts := ParsePath("m 5 5 l 10 0 v 5 h -10 z")
	require.Len(t, pts, 5)
	assert.Equal(t, domain.Point{X: 5, Y: 5}, pts[0])
	assert.Equal(t, domain.Point{X: 15, Y: 5}, pts[1])
	assert.Equal(t, domain.Point{X: 15, Y: 10}, pts[2])
	assert.Equal(t, domain.Point{X: 5, Y: 10}, pts[3])
	assert.Equal(t, domain.Point{X: 5, Y: 5}, pts[4])
}

func TestParsePathHorizontalVertical(t *testing.T) {
	pts := ParsePath("M 1 2 H 9 V 8")
	require.Len(t, pts, 3)
	assert.Equal(t, domain.Point{X: 9, Y: 2}, pts[1])
	assert.Equal(t, domain.Point{X: 9, Y: 8}, pts[2])
}

func TestParsePathQuadraticExpansion(t *testing.T) {
	pts := ParsePath("M 0 0 Q 5 10 10 0")
	// Start plus 16 bezier samples.
	require.Len(t, pts, 17)
	assert.InDelta(t, 10, pts[16].X, 1e-9)
	assert.InDelta(t, 0, pts[16].Y, 1e-9)
}

func TestParsePathCubicExpansion(t *testing.T) {
	pts := ParsePath("M 0 0 C 0 10 10 10 10 0")
	require.Len(t, pts, 17)
	assert.InDelta(t, 10, pts[16].X, 1e-9)
}

func TestParsePathUnknownCommandPairsRawPoints(t *testing.T) {
	pts := ParsePath("M 0 0 T 3 4 5 6")
	require.Len(t, pts, 3)
	assert.Equal(t, domain.Point{X: 3, Y: 4}, pts[1])
	assert.Equal(t, domain.Point{X: 5, Y: 6}, pts[2])
}

func TestParsePathMalformedArgsSkipped(t *testing.T) {
	// Incomplete lineto args are dropped; the following command still runs.
	pts := ParsePath("M 0 0 L 5 L 10 10")
	require.Len(t, pts, 2)
	assert.Equal(t, domain.Point{X: 10, Y: 10}, pts[1])

	// Garbage degrades to an empty sequence rather than an error.
	assert.Empty(t, ParsePath(""))
	assert.Empty(t, ParsePath("not a path"))
}

func TestParsePathNegativeAndCompactNumbers(t *testing.T) {
	pts := ParsePath("M-1-2L3-4")
	require.Len(t, pts, 2)
	assert.Equal(t, domain.Point{X: -1, Y: -2}, pts[0])
	assert.Equal(t, domain.Point{X: 3, Y: -4}, pts[1])
}

func TestParsePathCommaSeparators(t *testing.T) {
	pts := ParsePath("M 1,2 L 3,4")
	require.Len(t, pts, 2)
	assert.Equal(t, domain.Point{X: 3, Y: 4}, pts[1])
}
