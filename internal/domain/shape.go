package domain

import (
	"encoding/json"
	"fmt"
)

// Point is a canvas-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is the closed set of drawable geometries the actor can emit.
// Exactly one concrete variant backs each value; consumers match
// exhaustively with a type switch.
type Shape interface {
	Kind() ShapeKind
}

// ShapeKind discriminates Shape variants on the wire.
type ShapeKind string

const (
	ShapeLine   ShapeKind = "line"
	ShapeCircle ShapeKind = "circle"
	ShapeRect   ShapeKind = "rect"
	ShapeCurve  ShapeKind = "curve"
	ShapePath   ShapeKind = "path"
	ShapeErase  ShapeKind = "erase"
)

// Line is a straight segment between two points.
type Line struct {
	From  Point   `json:"from"`
	To    Point   `json:"to"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

// Circle is a center+radius circle.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color,omitempty"`
	Width  float64 `json:"width,omitempty"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

// Curve is a bezier described by its control points: two points form a
// segment, three a quadratic, four a cubic; more are drawn as a polyline.
type Curve struct {
	Points []Point `json:"points"`
	Color  string  `json:"color,omitempty"`
	Width  float64 `json:"width,omitempty"`
}

// Path carries an SVG-style mini-path string (M/L/H/V/Q/C/Z).
type Path struct {
	D     string  `json:"d"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

// Erase is a path drawn in the background color; committed strokes are
// never mutated, erasure happens at render time.
type Erase struct {
	D     string  `json:"d"`
	Width float64 `json:"width,omitempty"`
}

func (Line) Kind() ShapeKind   { return ShapeLine }
func (Circle) Kind() ShapeKind { return ShapeCircle }
func (Rect) Kind() ShapeKind   { return ShapeRect }
func (Curve) Kind() ShapeKind  { return ShapeCurve }
func (Path) Kind() ShapeKind   { return ShapePath }
func (Erase) Kind() ShapeKind  { return ShapeErase }

// shapeEnvelope carries only the discriminator of the tagged wire form.
type shapeEnvelope struct {
	Type ShapeKind `json:"type"`
}

// DecodeShape parses the tagged-union wire form {"type": ..., ...fields}.
func DecodeShape(raw json.RawMessage) (Shape, error) {
	var env shapeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode shape envelope: %w", err)
	}
	switch env.Type {
	case ShapeLine:
		var s Line
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode line: %w", err)
		}
		return s, nil
	case ShapeCircle:
		var s Circle
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode circle: %w", err)
		}
		return s, nil
	case ShapeRect:
		var s Rect
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode rect: %w", err)
		}
		return s, nil
	case ShapeCurve:
		var s Curve
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode curve: %w", err)
		}
		return s, nil
	case ShapePath:
		var s Path
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode path: %w", err)
		}
		return s, nil
	case ShapeErase:
		var s Erase
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode erase: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("decode shape: %w: %q", ErrInvalidInput, env.Type)
	}
}

// EncodeShape produces the tagged wire form of a Shape.
func EncodeShape(s Shape) (json.RawMessage, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	// Splice the discriminator into the variant's own object.
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"] = json.RawMessage(fmt.Sprintf("%q", s.Kind()))
	return json.Marshal(m)
}
