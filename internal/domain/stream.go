package domain

import (
	"context"
	"encoding/json"
)

// ActorEventType identifies one typed event on the completion stream.
type ActorEventType string

const (
	ActorThinking ActorEventType = "thinking"
	ActorBlock    ActorEventType = "block"
	ActorShape    ActorEventType = "shape"
	ActorSay      ActorEventType = "say"
	ActorWish     ActorEventType = "wish"
	ActorDone     ActorEventType = "done"
	ActorError    ActorEventType = "error"
)

// ActorEvent is one decoded event from the completion endpoint's stream.
// Exactly the field matching Type is populated.
type ActorEvent struct {
	Type     ActorEventType `json:"type"`
	Thinking string         `json:"thinking,omitempty"`
	Block    *AsciiBlock    `json:"block,omitempty"`
	Shape    Shape          `json:"-"`
	Say      *SayEvent      `json:"say,omitempty"`
	Wish     string         `json:"wish,omitempty"`
	// Description accompanies done events: what the actor drew this turn.
	Description string `json:"description,omitempty"`
	Err         string `json:"error,omitempty"`
}

// SayEvent is a positioned comment the actor wants to leave.
type SayEvent struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CompletionRequest is what the canvas submits for one actor turn.
type CompletionRequest struct {
	// SnapshotPNG is the rendered scene image the actor looks at.
	SnapshotPNG []byte `json:"-"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	// History is the committed element list in wire form, oldest first.
	History []json.RawMessage `json:"history,omitempty"`
	Turns   []Turn            `json:"turns,omitempty"`

	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	// DrawingMode restricts what kinds of output the actor may produce.
	DrawingMode string `json:"drawing_mode,omitempty"`
}

// Completer is the completion endpoint consumed by a canvas session.
// Stream returns a channel of typed actor events; the channel closes when
// the turn ends, the stream fails, or ctx is cancelled.
type Completer interface {
	Stream(ctx context.Context, req CompletionRequest) (<-chan ActorEvent, error)
}
