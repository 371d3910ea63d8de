package domain

import (
	"context"
	"time"
)

// CommentStore persists the saved comments of one canvas as a single
// keyed snapshot. Implementations reject snapshots whose revision is not
// newer than the stored one with ErrStaleRevision, so a stale writer
// cannot silently clobber a newer save.
type CommentStore interface {
	SaveComments(ctx context.Context, canvas string, revision int64, comments []Comment) error
	LoadComments(ctx context.Context, canvas string) ([]Comment, int64, error)
}

// VisitorMessage is one note left by a site visitor.
type VisitorMessage struct {
	ID        string    `json:"id"`
	VisitorID string    `json:"visitor_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// VisitorStore backs the page view counter and the visitor message box.
type VisitorStore interface {
	// IncrementViews bumps and returns the view count for a page.
	IncrementViews(ctx context.Context, page string) (int64, error)
	AddMessage(ctx context.Context, msg VisitorMessage) error
	ListMessages(ctx context.Context, visitorID string) ([]VisitorMessage, error)
	// PruneMessages deletes messages older than cutoff, returning how
	// many were removed.
	PruneMessages(ctx context.Context, cutoff time.Time) (int64, error)
}
