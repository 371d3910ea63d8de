package comments

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchbook/internal/domain"
)

// fakeClock drives AfterFunc timers by explicit advancement so lifecycle
// tests never sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	id    int
	at    time.Time
	fn    func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		timers: make(map[int]*fakeTimer),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := &fakeTimer{clock: c, id: c.nextID, at: c.now.Add(d), fn: f}
	c.timers[t.id] = t
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	_, ok := t.clock.timers[t.id]
	delete(t.clock.timers, t.id)
	return ok
}

// Advance moves time forward, firing due timers in deadline order. Fired
// callbacks may arm new timers; those fire too if they fall inside the
// advanced window.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		t := due[0]
		delete(c.timers, t.id)
		if t.at.After(c.now) {
			c.now = t.at
		}
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}
}

type memCommentStore struct {
	mu       sync.Mutex
	saves    int
	revision int64
	comments []domain.Comment
}

func (s *memCommentStore) SaveComments(_ context.Context, _ string, rev int64, comments []domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rev <= s.revision {
		return domain.ErrStaleRevision
	}
	s.saves++
	s.revision = rev
	s.comments = append([]domain.Comment(nil), comments...)
	return nil
}

func (s *memCommentStore) LoadComments(context.Context, string) ([]domain.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Comment(nil), s.comments...), s.revision, nil
}

func (s *memCommentStore) snapshot() (int, []domain.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, append([]domain.Comment(nil), s.comments...)
}

func newTestManager(t *testing.T) (*Manager, *fakeClock, *memCommentStore) {
	t.Helper()
	clock := newFakeClock()
	store := &memCommentStore{}
	m := NewManager(Options{
		CanvasKey: "home",
		Store:     store,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     clock,
	})
	t.Cleanup(m.Close)
	return m, clock, store
}

func TestHumanCommentIsBornSaved(t *testing.T) {
	m, _, _ := newTestManager(t)

	c := m.Add("nice corner", 120, 40, domain.OriginHuman)

	assert.Equal(t, domain.CommentSaved, c.Status)
	assert.False(t, c.Temp())
	got, ok := m.Get(c.ID)
	require.True(t, ok)
	assert.Equal(t, "nice corner", got.Text)
}

func TestActorCommentAutoDismisses(t *testing.T) {
	m, clock, _ := newTestManager(t)

	c := m.Add("what is this blob?", 10, 10, domain.OriginActor)
	require.Equal(t, domain.CommentTemp, c.Status)

	clock.Advance(domain.DismissAfter - time.Second)
	_, ok := m.Get(c.ID)
	assert.True(t, ok, "comment dismissed early")

	clock.Advance(2 * time.Second)
	_, ok = m.Get(c.ID)
	assert.False(t, ok, "comment should be gone after the dismissal window")
}

func TestSaveCancelsDismissal(t *testing.T) {
	m, clock, _ := newTestManager(t)

	c := m.Add("keep me", 0, 0, domain.OriginActor)
	clock.Advance(30 * time.Second)

	saved, err := m.Save(c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommentSaved, saved.Status)
	assert.True(t, saved.TempStartedAt.IsZero())

	clock.Advance(5 * time.Minute)
	_, ok := m.Get(c.ID)
	assert.True(t, ok)
}

func TestHumanReplyPromotesTempComment(t *testing.T) {
	m, clock, _ := newTestManager(t)

	c := m.Add("is that a cat?", 5, 5, domain.OriginActor)
	got, err := m.Reply(c.ID, domain.OriginHuman, "it is a dog")
	require.NoError(t, err)

	assert.Equal(t, domain.CommentSaved, got.Status)
	require.Len(t, got.Replies, 1)
	assert.False(t, got.Replies[0].IsStreaming)

	clock.Advance(10 * time.Minute)
	_, ok := m.Get(c.ID)
	assert.True(t, ok)
}

func TestActorReplyRevealsCharacterByCharacter(t *testing.T) {
	m, clock, _ := newTestManager(t)

	c := m.Add("thoughts?", 0, 0, domain.OriginHuman)
	got, err := m.Reply(c.ID, domain.OriginActor, "okay")
	require.NoError(t, err)
	require.Len(t, got.Replies, 1)
	assert.True(t, got.Replies[0].IsStreaming)
	assert.Equal(t, 0, got.Replies[0].DisplayLength)

	clock.Advance(2 * DefaultRevealTick)
	got, _ = m.Get(c.ID)
	assert.Equal(t, 2, got.Replies[0].DisplayLength)
	assert.True(t, got.Replies[0].IsStreaming)

	clock.Advance(2 * DefaultRevealTick)
	got, _ = m.Get(c.ID)
	assert.Equal(t, 4, got.Replies[0].DisplayLength)
	assert.False(t, got.Replies[0].IsStreaming)
}

func TestRevealAdvancesAllStreamingRepliesTogether(t *testing.T) {
	m, clock, _ := newTestManager(t)

	a := m.Add("first", 0, 0, domain.OriginHuman)
	b := m.Add("second", 0, 0, domain.OriginHuman)
	_, err := m.Reply(a.ID, domain.OriginActor, "yes")
	require.NoError(t, err)
	_, err = m.Reply(b.ID, domain.OriginActor, "maybe")
	require.NoError(t, err)

	clock.Advance(3 * DefaultRevealTick)

	ga, _ := m.Get(a.ID)
	gb, _ := m.Get(b.ID)
	assert.Equal(t, 3, ga.Replies[0].DisplayLength)
	assert.False(t, ga.Replies[0].IsStreaming)
	assert.Equal(t, 3, gb.Replies[0].DisplayLength)
	assert.True(t, gb.Replies[0].IsStreaming)
}

func TestRevealAdvancesWholeRunes(t *testing.T) {
	m, clock, _ := newTestManager(t)

	c := m.Add("translate?", 0, 0, domain.OriginHuman)
	_, err := m.Reply(c.ID, domain.OriginActor, "こんにちは")
	require.NoError(t, err)

	clock.Advance(DefaultRevealTick)
	got, _ := m.Get(c.ID)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, 3, got.Replies[0].DisplayLength, "one tick reveals one whole rune")
	assert.True(t, utf8.ValidString(got.Replies[0].Text[:got.Replies[0].DisplayLength]))
	assert.True(t, got.Replies[0].IsStreaming)

	clock.Advance(4 * DefaultRevealTick)
	got, _ = m.Get(c.ID)
	assert.Equal(t, len("こんにちは"), got.Replies[0].DisplayLength)
	assert.False(t, got.Replies[0].IsStreaming)
}

func TestSnapshotsDoNotAliasStreamingReplies(t *testing.T) {
	m, clock, _ := newTestManager(t)

	c := m.Add("racy?", 0, 0, domain.OriginHuman)
	_, err := m.Reply(c.ID, domain.OriginActor, "long answer")
	require.NoError(t, err)

	before, ok := m.Get(c.ID)
	require.True(t, ok)
	require.Len(t, before.Replies, 1)
	require.Equal(t, 0, before.Replies[0].DisplayLength)

	clock.Advance(3 * DefaultRevealTick)

	assert.Equal(t, 0, before.Replies[0].DisplayLength,
		"handed-out copies must not share the live replies array")
	after, _ := m.Get(c.ID)
	assert.Equal(t, 3, after.Replies[0].DisplayLength)
}

func TestPersistenceIsDebouncedAndSavedOnly(t *testing.T) {
	m, clock, store := newTestManager(t)

	m.Add("one", 0, 0, domain.OriginHuman)
	m.Add("two", 0, 0, domain.OriginHuman)
	m.Add("ghost", 0, 0, domain.OriginActor)

	saves, _ := store.snapshot()
	assert.Equal(t, 0, saves, "writes must wait for the debounce window")

	clock.Advance(DefaultSaveDelay)
	saves, comments := store.snapshot()
	assert.Equal(t, 1, saves, "burst of adds should collapse into one write")
	require.Len(t, comments, 2, "temp comments must not be persisted")
	assert.Equal(t, "one", comments[0].Text)
	assert.Equal(t, "two", comments[1].Text)
}

func TestStaleRevisionIsRejectedByStore(t *testing.T) {
	store := &memCommentStore{revision: 10}

	err := store.SaveComments(context.Background(), "home", 3, nil)
	assert.ErrorIs(t, err, domain.ErrStaleRevision)
}

func TestLoadForcesRevealComplete(t *testing.T) {
	clock := newFakeClock()
	store := &memCommentStore{
		revision: 4,
		comments: []domain.Comment{{
			ID:     "01ARZ3NDEKTSV4RRFFQ69G5FAV",
			Text:   "restored",
			Status: domain.CommentSaved,
			Replies: []domain.Reply{
				{From: domain.OriginActor, Text: "hello there", IsStreaming: true, DisplayLength: 3},
			},
		}},
	}
	m := NewManager(Options{
		CanvasKey: "home",
		Store:     store,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     clock,
	})
	defer m.Close()

	require.NoError(t, m.Load(context.Background()))

	got, ok := m.Get("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.True(t, ok)
	require.Len(t, got.Replies, 1)
	assert.False(t, got.Replies[0].IsStreaming)
	assert.Equal(t, len("hello there"), got.Replies[0].DisplayLength)
}

func TestDeleteUnknownComment(t *testing.T) {
	m, _, _ := newTestManager(t)

	err := m.Delete("nope")
	assert.ErrorIs(t, err, domain.ErrCommentMissing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClearDropsEverything(t *testing.T) {
	m, clock, store := newTestManager(t)

	m.Add("a", 0, 0, domain.OriginHuman)
	m.Add("b", 0, 0, domain.OriginActor)
	clock.Advance(DefaultSaveDelay)

	m.Clear()
	assert.Empty(t, m.List())

	clock.Advance(DefaultSaveDelay)
	_, comments := store.snapshot()
	assert.Empty(t, comments, "clear must rewrite the snapshot as empty")
}
