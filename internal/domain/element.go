package domain

import "encoding/json"

// Origin tags who produced a drawing element or comment.
type Origin string

const (
	OriginHuman Origin = "human"
	OriginActor Origin = "actor"
)

// ElementKind discriminates what a DrawingElement wraps.
type ElementKind string

const (
	ElementShape  ElementKind = "shape"
	ElementStroke ElementKind = "stroke"
	ElementAscii  ElementKind = "ascii"
)

// HumanStroke is an accumulating freehand path. It is mutable only while
// the pointer is down; EndStroke freezes it into a DrawingElement.
type HumanStroke struct {
	D     string  `json:"d"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// AsciiBlock is a glyph or multi-line text stamp. Immutable once placed.
type AsciiBlock struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color,omitempty"`
}

// DrawingElement is one committed item of the scene. Elements are
// append-only: after insertion they are never mutated, only wholesale
// cleared.
type DrawingElement struct {
	ID     int64        `json:"id"`
	Kind   ElementKind  `json:"kind"`
	Origin Origin       `json:"origin"`
	Shape  Shape        `json:"-"`
	Stroke *HumanStroke `json:"stroke,omitempty"`
	Ascii  *AsciiBlock  `json:"ascii,omitempty"`
}

// MarshalJSON inlines the geometry of shape elements in the tagged
// {"type": ...} wire form; the Shape interface cannot carry its
// discriminator through plain struct encoding.
func (e DrawingElement) MarshalJSON() ([]byte, error) {
	type plain DrawingElement
	out := struct {
		plain
		Shape json.RawMessage `json:"shape,omitempty"`
	}{plain: plain(e)}
	if e.Shape != nil {
		raw, err := EncodeShape(e.Shape)
		if err != nil {
			return nil, err
		}
		out.Shape = raw
	}
	return json.Marshal(out)
}
