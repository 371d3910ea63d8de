package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	// Cursor / playback events.
	EventCursorFrame      EventType = "cursor.frame"
	EventElementCommitted EventType = "element.committed"
	EventSceneCleared     EventType = "scene.cleared"
	EventQueueIdle        EventType = "queue.idle"

	// Actor turn lifecycle.
	EventTurnStarted   EventType = "turn.started"
	EventTurnDone      EventType = "turn.done"
	EventTurnError     EventType = "turn.error"
	EventActorThinking EventType = "actor.thinking"
	EventActorWish     EventType = "actor.wish"

	// Comment overlay lifecycle.
	EventCommentCreated   EventType = "comment.created"
	EventCommentUpdated   EventType = "comment.updated"
	EventCommentDismissed EventType = "comment.dismissed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// PublishEvent marshals payload and publishes it on bus. A nil bus or
// unmarshalable payload degrades to a no-op; events are best-effort.
func PublishEvent(ctx context.Context, bus EventBus, t EventType, sessionID string, payload any) {
	if bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return
		}
		raw = b
	}
	bus.Publish(ctx, Event{Type: t, Timestamp: time.Now(), SessionID: sessionID, Payload: raw})
}

// CursorFramePayload is the payload for EventCursorFrame events: one
// sampled position of the actor's animated cursor.
type CursorFramePayload struct {
	Pos      Point   `json:"pos"`
	Drawing  bool    `json:"drawing"`
	Progress float64 `json:"progress"`
}

// ElementCommittedPayload announces a newly committed scene element.
// Shape elements encode their geometry inline via DrawingElement.
type ElementCommittedPayload struct {
	Element DrawingElement `json:"element"`
}

// TurnDonePayload closes an actor turn with its drawn description.
type TurnDonePayload struct {
	Description string `json:"description,omitempty"`
}

// TurnErrorPayload carries the short user-facing failure string.
type TurnErrorPayload struct {
	Message string `json:"message"`
}
