// Package scene holds the committed drawing elements of one canvas and
// its viewport transform.
package scene

import (
	"sync"

	"sketchbook/internal/domain"
)

// Store is the append-and-clear element store. Committed elements are
// never mutated; erasure is itself a drawn erase shape clipped at render
// time. Full reset is the only bulk operation.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	elems  []domain.DrawingElement
}

// NewStore creates an empty scene.
func NewStore() *Store {
	return &Store{}
}

// AddShape commits an actor- or human-drawn shape and returns the element.
func (s *Store) AddShape(shape domain.Shape, origin domain.Origin) domain.DrawingElement {
	return s.append(domain.DrawingElement{
		Kind:   domain.ElementShape,
		Origin: origin,
		Shape:  shape,
	})
}

// AddStroke freezes a finished human stroke into the scene.
func (s *Store) AddStroke(stroke domain.HumanStroke, origin domain.Origin) domain.DrawingElement {
	st := stroke
	return s.append(domain.DrawingElement{
		Kind:   domain.ElementStroke,
		Origin: origin,
		Stroke: &st,
	})
}

// AddAscii commits a glyph stamp.
func (s *Store) AddAscii(block domain.AsciiBlock, origin domain.Origin) domain.DrawingElement {
	b := block
	return s.append(domain.DrawingElement{
		Kind:   domain.ElementAscii,
		Origin: origin,
		Ascii:  &b,
	})
}

func (s *Store) append(el domain.DrawingElement) domain.DrawingElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	el.ID = s.nextID
	s.elems = append(s.elems, el)
	return el
}

// Elements returns a copy of the committed elements in insertion order.
func (s *Store) Elements() []domain.DrawingElement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]domain.DrawingElement, len(s.elems))
	copy(cp, s.elems)
	return cp
}

// Len reports the number of committed elements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elems)
}

// Clear wholesale-resets the scene. Element ids keep incrementing across
// clears so stale references never collide with new elements.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elems = nil
}
