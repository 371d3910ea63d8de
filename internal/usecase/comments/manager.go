// Package comments manages the annotation overlay of a canvas: sticky
// comments pinned to canvas coordinates, their temp/saved lifecycle, the
// character-by-character reveal of actor replies, and debounced
// persistence of the saved set.
package comments

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"sketchbook/internal/domain"
)

const (
	// DefaultSaveDelay debounces persistence so a burst of edits
	// produces a single snapshot write.
	DefaultSaveDelay = 300 * time.Millisecond

	// DefaultRevealTick advances every streaming reply by one character.
	DefaultRevealTick = 30 * time.Millisecond
)

// Timer is the subset of time.Timer the manager needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time and timer creation so the dismissal and
// reveal schedules can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Options configures a Manager. Store may be nil, in which case the
// overlay is ephemeral and persistence is skipped entirely.
type Options struct {
	CanvasKey  string
	Store      domain.CommentStore
	Bus        domain.EventBus
	SessionID  string
	Logger     *slog.Logger
	Clock      Clock
	SaveDelay  time.Duration
	RevealTick time.Duration
}

// Manager owns the comment overlay of one canvas.
type Manager struct {
	canvas     string
	store      domain.CommentStore
	bus        domain.EventBus
	sessionID  string
	logger     *slog.Logger
	clock      Clock
	saveDelay  time.Duration
	revealTick time.Duration

	mu       sync.Mutex
	byID     map[string]*domain.Comment
	order    []string
	dismiss  map[string]Timer
	saveT    Timer
	revealT  Timer
	revision int64
	entropy  *rand.Rand
	closed   bool
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = DefaultSaveDelay
	}
	if opts.RevealTick <= 0 {
		opts.RevealTick = DefaultRevealTick
	}
	return &Manager{
		canvas:     opts.CanvasKey,
		store:      opts.Store,
		bus:        opts.Bus,
		sessionID:  opts.SessionID,
		logger:     opts.Logger,
		clock:      opts.Clock,
		saveDelay:  opts.SaveDelay,
		revealTick: opts.RevealTick,
		byID:       make(map[string]*domain.Comment),
		dismiss:    make(map[string]Timer),
		entropy:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Add creates a comment pinned at canvas coordinates. Human comments are
// born saved; actor comments are born temp and self-dismiss after
// domain.DismissAfter unless a human interacts with them.
func (m *Manager) Add(text string, x, y float64, from domain.Origin) domain.Comment {
	m.mu.Lock()
	now := m.clock.Now()
	c := &domain.Comment{
		ID:        m.newIDLocked(now),
		Text:      text,
		X:         x,
		Y:         y,
		From:      from,
		Status:    domain.CommentSaved,
		CreatedAt: now,
	}
	if from == domain.OriginActor {
		c.Status = domain.CommentTemp
		c.TempStartedAt = now
		m.scheduleDismissLocked(c)
	}
	m.byID[c.ID] = c
	m.order = append(m.order, c.ID)
	snapshot := m.snapshotLocked(c)
	m.schedulePersistLocked()
	m.mu.Unlock()

	m.publish(domain.EventCommentCreated, snapshot)
	return snapshot
}

// Save promotes a temp comment to saved, cancelling its dismissal.
func (m *Manager) Save(id string) (domain.Comment, error) {
	m.mu.Lock()
	c, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return domain.Comment{}, domain.NewDomainError("comments.save", domain.ErrCommentMissing, id)
	}
	if c.Status == domain.CommentTemp {
		c.Status = domain.CommentSaved
		c.TempStartedAt = time.Time{}
		m.cancelDismissLocked(id)
		m.schedulePersistLocked()
	}
	snapshot := m.snapshotLocked(c)
	m.mu.Unlock()

	m.publish(domain.EventCommentUpdated, snapshot)
	return snapshot, nil
}

// Reply appends a reply to a comment. A human reply to a temp comment
// promotes it, since interaction signals the thread is worth keeping.
// Actor replies start streaming and are revealed one character per
// reveal tick.
func (m *Manager) Reply(id string, from domain.Origin, text string) (domain.Comment, error) {
	m.mu.Lock()
	c, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return domain.Comment{}, domain.NewDomainError("comments.reply", domain.ErrCommentMissing, id)
	}
	r := domain.Reply{
		From:      from,
		Text:      text,
		CreatedAt: m.clock.Now(),
	}
	if from == domain.OriginActor {
		r.IsStreaming = true
		m.ensureRevealLocked()
	} else if c.Status == domain.CommentTemp {
		c.Status = domain.CommentSaved
		c.TempStartedAt = time.Time{}
		m.cancelDismissLocked(id)
	}
	c.Replies = append(c.Replies, r)
	m.schedulePersistLocked()
	snapshot := m.snapshotLocked(c)
	m.mu.Unlock()

	m.publish(domain.EventCommentUpdated, snapshot)
	return snapshot, nil
}

// Delete removes a comment regardless of status.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	c, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return domain.NewDomainError("comments.delete", domain.ErrCommentMissing, id)
	}
	m.removeLocked(id)
	wasSaved := c.Status == domain.CommentSaved
	if wasSaved {
		m.schedulePersistLocked()
	}
	m.mu.Unlock()

	m.publish(domain.EventCommentDismissed, domain.Comment{ID: id})
	return nil
}

// Move repins a comment to new canvas coordinates.
func (m *Manager) Move(id string, x, y float64) (domain.Comment, error) {
	m.mu.Lock()
	c, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return domain.Comment{}, domain.NewDomainError("comments.move", domain.ErrCommentMissing, id)
	}
	c.X, c.Y = x, y
	if c.Status == domain.CommentSaved {
		m.schedulePersistLocked()
	}
	snapshot := m.snapshotLocked(c)
	m.mu.Unlock()

	m.publish(domain.EventCommentUpdated, snapshot)
	return snapshot, nil
}

// Get returns a copy of one comment.
func (m *Manager) Get(id string) (domain.Comment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.Comment{}, false
	}
	return m.snapshotLocked(c), true
}

// List returns copies of all comments in creation order.
func (m *Manager) List() []domain.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Comment, 0, len(m.order))
	for _, id := range m.order {
		if c, ok := m.byID[id]; ok {
			out = append(out, m.snapshotLocked(c))
		}
	}
	return out
}

// Load restores the saved snapshot from the store. Reveal state of actor
// replies is forced complete: a page reload should never replay the
// typing animation.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	comments, rev, err := m.store.LoadComments(ctx, m.canvas)
	if err != nil {
		return domain.NewDomainError("comments.load", err, m.canvas)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.revision = rev
	for i := range comments {
		c := comments[i]
		c.Status = domain.CommentSaved
		for j := range c.Replies {
			c.Replies[j].IsStreaming = false
			c.Replies[j].DisplayLength = len(c.Replies[j].Text)
		}
		if _, ok := m.byID[c.ID]; !ok {
			m.order = append(m.order, c.ID)
		}
		m.byID[c.ID] = &c
	}
	return nil
}

// Clear drops every comment without persisting the (now empty) temp set;
// the saved snapshot is rewritten so deletions survive a reload.
func (m *Manager) Clear() {
	m.mu.Lock()
	for id := range m.dismiss {
		m.dismiss[id].Stop()
		delete(m.dismiss, id)
	}
	m.byID = make(map[string]*domain.Comment)
	m.order = nil
	m.schedulePersistLocked()
	m.mu.Unlock()
}

// Close stops all pending timers. Pending debounced saves are dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, t := range m.dismiss {
		t.Stop()
		delete(m.dismiss, id)
	}
	if m.saveT != nil {
		m.saveT.Stop()
		m.saveT = nil
	}
	if m.revealT != nil {
		m.revealT.Stop()
		m.revealT = nil
	}
}

// snapshotLocked deep-copies a comment. The reveal loop mutates Replies
// entries in place, so copies handed out past the lock must not share
// the backing array.
func (m *Manager) snapshotLocked(c *domain.Comment) domain.Comment {
	out := *c
	if len(c.Replies) > 0 {
		out.Replies = append([]domain.Reply(nil), c.Replies...)
	}
	return out
}

func (m *Manager) newIDLocked(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), m.entropy).String()
}

func (m *Manager) removeLocked(id string) {
	delete(m.byID, id)
	m.cancelDismissLocked(id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// scheduleDismissLocked arms the auto-dismiss timer for a temp comment.
// The delay is computed from TempStartedAt rather than from now, so a
// comment restored mid-countdown keeps its original deadline.
func (m *Manager) scheduleDismissLocked(c *domain.Comment) {
	if m.closed {
		return
	}
	m.cancelDismissLocked(c.ID)
	remaining := domain.DismissAfter - m.clock.Now().Sub(c.TempStartedAt)
	if remaining < 0 {
		remaining = 0
	}
	id := c.ID
	m.dismiss[id] = m.clock.AfterFunc(remaining, func() { m.dismissExpired(id) })
}

func (m *Manager) cancelDismissLocked(id string) {
	if t, ok := m.dismiss[id]; ok {
		t.Stop()
		delete(m.dismiss, id)
	}
}

func (m *Manager) dismissExpired(id string) {
	m.mu.Lock()
	c, ok := m.byID[id]
	if !ok || c.Status != domain.CommentTemp {
		m.mu.Unlock()
		return
	}
	m.removeLocked(id)
	m.mu.Unlock()

	m.publish(domain.EventCommentDismissed, domain.Comment{ID: id})
}

// ensureRevealLocked arms the shared reveal loop. One timer advances
// every streaming reply in lockstep; it re-arms itself while any reply
// is still incomplete.
func (m *Manager) ensureRevealLocked() {
	if m.closed || m.revealT != nil {
		return
	}
	m.revealT = m.clock.AfterFunc(m.revealTick, m.revealStep)
}

func (m *Manager) revealStep() {
	var done []domain.Comment

	m.mu.Lock()
	streaming := false
	for _, id := range m.order {
		c := m.byID[id]
		changedToDone := false
		for j := range c.Replies {
			r := &c.Replies[j]
			if !r.IsStreaming {
				continue
			}
			// Advance a whole rune so clients slicing Text[:DisplayLength]
			// never cut a UTF-8 sequence mid-character.
			_, size := utf8.DecodeRuneInString(r.Text[r.DisplayLength:])
			r.DisplayLength += size
			if r.DisplayLength >= len(r.Text) {
				r.DisplayLength = len(r.Text)
				r.IsStreaming = false
				changedToDone = true
			} else {
				streaming = true
			}
		}
		if changedToDone {
			done = append(done, m.snapshotLocked(c))
		}
	}
	m.revealT = nil
	if streaming && !m.closed {
		m.revealT = m.clock.AfterFunc(m.revealTick, m.revealStep)
	}
	m.mu.Unlock()

	for _, c := range done {
		m.publish(domain.EventCommentUpdated, c)
	}
}

// schedulePersistLocked debounces a snapshot write of the saved set.
func (m *Manager) schedulePersistLocked() {
	if m.store == nil || m.closed {
		return
	}
	if m.saveT != nil {
		m.saveT.Stop()
	}
	m.saveT = m.clock.AfterFunc(m.saveDelay, m.persist)
}

func (m *Manager) persist() {
	m.mu.Lock()
	m.saveT = nil
	m.revision++
	rev := m.revision
	saved := make([]domain.Comment, 0, len(m.order))
	for _, id := range m.order {
		if c := m.byID[id]; c != nil && c.Status == domain.CommentSaved {
			saved = append(saved, m.snapshotLocked(c))
		}
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.SaveComments(ctx, m.canvas, rev, saved); err != nil {
		m.logger.Error("comment snapshot write failed",
			"canvas", m.canvas, "revision", rev, "error", err)
	}
}

func (m *Manager) publish(t domain.EventType, c domain.Comment) {
	domain.PublishEvent(context.Background(), m.bus, t, m.sessionID, c)
}
