// Package animator drains drawable items one at a time through the
// motion engine, committing each to the scene as its playback finishes.
package animator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sketchbook/internal/domain"
	"sketchbook/internal/usecase/geometry"
	"sketchbook/internal/usecase/motion"
	"sketchbook/internal/usecase/scene"
)

// defaultIdlePoll is the Finish polling interval. Finish deliberately
// polls to quiescence instead of waiting on a completion signal.
const defaultIdlePoll = 50 * time.Millisecond

// Item is one queued drawable: a shape stroke or an ASCII stamp.
// Exactly one of Shape and Ascii is set.
type Item struct {
	ID    int64
	Shape domain.Shape
	Ascii *domain.AsciiBlock
}

// Queue is a strictly-ordered, single-consumer animation queue. Items
// drain FIFO; the next item's glide never starts before the current
// item's playback completes. The queue owns all of its mutable playback
// state for the lifetime of the canvas session.
type Queue struct {
	engine *motion.Engine
	scn    *scene.Store
	bus    domain.EventBus
	logger *slog.Logger

	sessionID string
	idlePoll  time.Duration

	mu       sync.Mutex
	items    []Item
	nextID   int64
	draining bool
	drawing  bool
	lastPos  *domain.Point
	cancel   context.CancelFunc
}

// NewQueue creates an idle queue bound to one scene.
func NewQueue(engine *motion.Engine, scn *scene.Store, bus domain.EventBus, sessionID string, logger *slog.Logger) *Queue {
	return &Queue{
		engine:    engine,
		scn:       scn,
		bus:       bus,
		logger:    logger,
		sessionID: sessionID,
		idlePoll:  defaultIdlePoll,
	}
}

// EnqueueShape appends a shape item and returns its queue id.
func (q *Queue) EnqueueShape(s domain.Shape) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.items = append(q.items, Item{ID: q.nextID, Shape: s})
	return q.nextID
}

// EnqueueAscii appends a glyph stamp item and returns its queue id.
func (q *Queue) EnqueueAscii(b domain.AsciiBlock) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.items = append(q.items, Item{ID: q.nextID, Ascii: &b})
	return q.nextID
}

// Process starts draining the queue. Re-entrant calls while a drain is
// active are no-ops.
func (q *Queue) Process(ctx context.Context) {
	q.mu.Lock()
	if q.draining || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.drawing = true
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.mu.Unlock()

	go q.drain(runCtx)
}

func (q *Queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.settle()
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.mu.Unlock()

		if err := q.play(ctx, item); err != nil {
			// Cancelled mid-item: leave whatever Clear decided in place.
			q.mu.Lock()
			q.settle()
			q.mu.Unlock()
			return
		}

		q.mu.Lock()
		if len(q.items) > 0 && q.items[0].ID == item.ID {
			q.items = q.items[1:]
		}
		q.mu.Unlock()
	}
}

// settle ends a drain pass. Caller holds q.mu.
func (q *Queue) settle() {
	q.draining = false
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

// play animates one item and, on completion, transfers it to the scene.
func (q *Queue) play(ctx context.Context, item Item) error {
	if item.Ascii != nil {
		return q.playAscii(ctx, item)
	}

	pts := geometry.SamplePoints(item.Shape)
	if len(pts) > 0 {
		if from := q.last(); from != nil {
			if err := q.engine.Glide(ctx, *from, pts[0]); err != nil {
				return err
			}
		}
		if err := q.engine.Trace(ctx, pts); err != nil {
			return err
		}
		end := pts[len(pts)-1]
		q.setLast(end)
	}

	el := q.scn.AddShape(item.Shape, domain.OriginActor)
	q.announce(ctx, el)
	return nil
}

func (q *Queue) playAscii(ctx context.Context, item Item) error {
	anchor := domain.Point{X: item.Ascii.X, Y: item.Ascii.Y}
	if from := q.last(); from != nil {
		if err := q.engine.Glide(ctx, *from, anchor); err != nil {
			return err
		}
	}
	// Stamps have no stroke animation, just a short pre-stamp beat.
	if err := q.engine.StampPause(ctx); err != nil {
		return err
	}
	q.setLast(anchor)

	el := q.scn.AddAscii(*item.Ascii, domain.OriginActor)
	q.announce(ctx, el)
	return nil
}

func (q *Queue) announce(ctx context.Context, el domain.DrawingElement) {
	domain.PublishEvent(ctx, q.bus, domain.EventElementCommitted, q.sessionID,
		domain.ElementCommittedPayload{Element: el})
}

// Finish polls until the queue is idle, then clears the cursor and the
// is-drawing flag.
func (q *Queue) Finish(ctx context.Context) error {
	t := time.NewTicker(q.idlePoll)
	defer t.Stop()
	for {
		q.mu.Lock()
		idle := !q.draining && len(q.items) == 0
		if idle {
			q.drawing = false
			q.lastPos = nil
			q.mu.Unlock()
			domain.PublishEvent(ctx, q.bus, domain.EventQueueIdle, q.sessionID, nil)
			return nil
		}
		q.mu.Unlock()

		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Clear cancels in-flight playback and drops all queued items.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.drawing = false
	q.lastPos = nil
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Drawing reports whether actor playback is in progress.
func (q *Queue) Drawing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drawing
}

// Pending reports the number of queued, not-yet-played items.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) last() *domain.Point {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastPos
}

func (q *Queue) setLast(p domain.Point) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastPos = &p
}
