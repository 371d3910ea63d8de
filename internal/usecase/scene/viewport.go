package scene

import (
	"sync"

	"sketchbook/internal/domain"
)

// Viewport maintains the pan/zoom state and the bidirectional
// screen-canvas mapping every other component depends on. Zoom is
// clamped to [minZoom, maxZoom]; pan is an unbounded offset.
type Viewport struct {
	mu      sync.RWMutex
	zoom    float64
	pan     domain.Point
	minZoom float64
	maxZoom float64
}

// NewViewport creates a viewport at zoom 1 with no pan.
func NewViewport(minZoom, maxZoom float64) *Viewport {
	if minZoom <= 0 {
		minZoom = 0.25
	}
	if maxZoom < minZoom {
		maxZoom = 4
	}
	return &Viewport{zoom: 1, minZoom: minZoom, maxZoom: maxZoom}
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// Pan returns the current pan offset in screen space.
func (v *Viewport) Pan() domain.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pan
}

// PanBy shifts the viewport by a screen-space delta.
func (v *Viewport) PanBy(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pan.X += dx
	v.pan.Y += dy
}

// Set replaces zoom and pan wholesale, clamping zoom.
func (v *Viewport) Set(zoom float64, pan domain.Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = v.clampZoom(zoom)
	v.pan = pan
}

// ZoomAt multiplies zoom by factor anchored at a screen point, so the
// canvas point under the anchor stays put.
func (v *Viewport) ZoomAt(anchor domain.Point, factor float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := v.clampZoom(v.zoom * factor)
	if next == v.zoom {
		return
	}
	scale := next / v.zoom
	v.pan = domain.Point{
		X: anchor.X - (anchor.X-v.pan.X)*scale,
		Y: anchor.Y - (anchor.Y-v.pan.Y)*scale,
	}
	v.zoom = next
}

// ScreenToCanvas maps a screen point into canvas space. It is the exact
// inverse of CanvasToScreen for the same zoom/pan snapshot.
func (v *Viewport) ScreenToCanvas(p domain.Point) domain.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.Point{
		X: (p.X - v.pan.X) / v.zoom,
		Y: (p.Y - v.pan.Y) / v.zoom,
	}
}

// CanvasToScreen maps a canvas point into screen space.
func (v *Viewport) CanvasToScreen(p domain.Point) domain.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.Point{
		X: p.X*v.zoom + v.pan.X,
		Y: p.Y*v.zoom + v.pan.Y,
	}
}

func (v *Viewport) clampZoom(z float64) float64 {
	if z < v.minZoom {
		return v.minZoom
	}
	if z > v.maxZoom {
		return v.maxZoom
	}
	return z
}
