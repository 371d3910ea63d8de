// Package geometry converts declarative shape descriptions into ordered
// point sequences suitable for incremental animation playback.
package geometry

import (
	"math"

	"sketchbook/internal/domain"
)

// bezierSteps is the fixed sample count for quadratic and cubic curves.
const bezierSteps = 16

// circleSegments yields 33 points around the circumference, closed.
const circleSegments = 32

// SamplePoints returns a finite ordered approximation of s for playback.
// It never fails: a nil shape or one missing required fields yields an
// empty sequence, which callers treat as a no-op draw.
func SamplePoints(s domain.Shape) []domain.Point {
	switch v := s.(type) {
	case domain.Line:
		return []domain.Point{v.From, v.To}
	case domain.Circle:
		return sampleCircle(v)
	case domain.Rect:
		return []domain.Point{
			{X: v.X, Y: v.Y},
			{X: v.X + v.W, Y: v.Y},
			{X: v.X + v.W, Y: v.Y + v.H},
			{X: v.X, Y: v.Y + v.H},
			{X: v.X, Y: v.Y},
		}
	case domain.Curve:
		return sampleCurve(v.Points)
	case domain.Path:
		return ParsePath(v.D)
	case domain.Erase:
		return ParsePath(v.D)
	}
	return nil
}

func sampleCircle(c domain.Circle) []domain.Point {
	if c.Radius <= 0 {
		return nil
	}
	pts := make([]domain.Point, 0, circleSegments+1)
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts = append(pts, domain.Point{
			X: c.Center.X + c.Radius*math.Cos(a),
			Y: c.Center.Y + c.Radius*math.Sin(a),
		})
	}
	return pts
}

func sampleCurve(ctrl []domain.Point) []domain.Point {
	switch len(ctrl) {
	case 0, 1:
		return nil
	case 2:
		return []domain.Point{ctrl[0], ctrl[1]}
	case 3:
		return appendQuadratic([]domain.Point{ctrl[0]}, ctrl[0], ctrl[1], ctrl[2])
	case 4:
		return appendCubic([]domain.Point{ctrl[0]}, ctrl[0], ctrl[1], ctrl[2], ctrl[3])
	default:
		// More control points than a cubic: draw the polyline as-is.
		out := make([]domain.Point, len(ctrl))
		copy(out, ctrl)
		return out
	}
}

// appendQuadratic appends bezierSteps samples of the quadratic from p0
// through control c to p1, excluding p0 itself.
func appendQuadratic(dst []domain.Point, p0, c, p1 domain.Point) []domain.Point {
	for i := 1; i <= bezierSteps; i++ {
		t := float64(i) / bezierSteps
		u := 1 - t
		dst = append(dst, domain.Point{
			X: u*u*p0.X + 2*u*t*c.X + t*t*p1.X,
			Y: u*u*p0.Y + 2*u*t*c.Y + t*t*p1.Y,
		})
	}
	return dst
}

func appendCubic(dst []domain.Point, p0, c1, c2, p1 domain.Point) []domain.Point {
	for i := 1; i <= bezierSteps; i++ {
		t := float64(i) / bezierSteps
		u := 1 - t
		dst = append(dst, domain.Point{
			X: u*u*u*p0.X + 3*u*u*t*c1.X + 3*u*t*t*c2.X + t*t*t*p1.X,
			Y: u*u*u*p0.Y + 3*u*u*t*c1.Y + 3*u*t*t*c2.Y + t*t*t*p1.Y,
		})
	}
	return dst
}

// PathLength is the total polyline length of a sampled sequence.
func PathLength(pts []domain.Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += Dist(pts[i-1], pts[i])
	}
	return total
}

// Dist is the Euclidean distance between two points.
func Dist(a, b domain.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
