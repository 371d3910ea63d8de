package domain

import "time"

// CommentStatus is the persistence state of an annotation.
type CommentStatus string

const (
	// CommentTemp comments auto-dismiss 60s after creation unless promoted.
	CommentTemp CommentStatus = "temp"
	// CommentSaved comments persist and never revert to temp.
	CommentSaved CommentStatus = "saved"
)

// DismissAfter is how long a temp comment lives without a save or reply.
const DismissAfter = 60 * time.Second

// Reply is one entry in a comment's append-only reply thread. Actor
// replies arrive whole but are revealed progressively; DisplayLength
// counts the characters currently visible.
type Reply struct {
	From          Origin    `json:"from"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
	IsStreaming   bool      `json:"is_streaming,omitempty"`
	DisplayLength int       `json:"display_length,omitempty"`
}

// Comment is a positioned annotation anchored to canvas coordinates.
// Invariant: Status == CommentTemp implies TempStartedAt is non-zero.
type Comment struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	X             float64       `json:"x"`
	Y             float64       `json:"y"`
	From          Origin        `json:"from"`
	Status        CommentStatus `json:"status"`
	TempStartedAt time.Time     `json:"temp_started_at,omitempty"`
	Replies       []Reply       `json:"replies,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Temp reports whether the comment is still awaiting promotion.
func (c *Comment) Temp() bool { return c.Status == CommentTemp }
