package session

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"sketchbook/internal/domain"
	"sketchbook/internal/infra/logger"
	"sketchbook/internal/usecase/animator"
	"sketchbook/internal/usecase/comments"
	"sketchbook/internal/usecase/motion"
	"sketchbook/internal/usecase/scene"
)

// Factory holds everything shared across sessions and mints new ones.
type Factory struct {
	Config    Config
	Motion    motion.Options
	Completer domain.Completer
	Store     domain.CommentStore
	Snapshot  Snapshotter
	Bus       domain.EventBus
	Logger    *slog.Logger
}

// Manager tracks live sessions by ID.
type Manager struct {
	factory Factory
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	entropy  *rand.Rand
}

func NewManager(factory Factory) *Manager {
	if factory.Logger == nil {
		factory.Logger = slog.Default()
	}
	return &Manager{
		factory:  factory,
		logger:   factory.Logger,
		sessions: make(map[string]*Session),
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Open creates a new session wired to fresh scene, queue, and overlay
// state, and registers it.
func (m *Manager) Open() *Session {
	m.mu.Lock()
	id := ulid.MustNew(ulid.Now(), m.entropy).String()
	m.mu.Unlock()
	return m.open(id)
}

// Resume rebuilds a session around a canvas key minted by a previous
// process, restoring its saved comments. The drawing itself is not
// persisted, so the scene comes back empty. Keys that are not ULIDs are
// rejected.
func (m *Manager) Resume(id string) (*Session, error) {
	if _, err := ulid.Parse(id); err != nil {
		return nil, domain.NewDomainError("session.resume", domain.ErrNotFound, id)
	}
	return m.open(id), nil
}

func (m *Manager) open(id string) *Session {
	f := m.factory
	log := logger.ForSession(f.Logger, id)
	st := scene.NewStore()
	vp := scene.NewViewport(f.Config.MinZoom, f.Config.MaxZoom)
	onFrame := func(fr motion.Frame) {
		domain.PublishEvent(context.Background(), f.Bus, domain.EventCursorFrame, id,
			domain.CursorFramePayload{Pos: fr.Pos, Drawing: fr.Drawing, Progress: fr.Progress})
	}
	eng := motion.NewEngine(motion.NewTickScheduler(motion.DefaultFrameInterval), onFrame, f.Motion)
	q := animator.NewQueue(eng, st, f.Bus, id, log)
	cm := comments.NewManager(comments.Options{
		CanvasKey: id,
		Store:     f.Store,
		Bus:       f.Bus,
		SessionID: id,
		Logger:    log,
	})
	if f.Store != nil {
		// Restore any saved annotations for this canvas key. A canvas
		// never persisted before loads empty.
		if err := cm.Load(context.Background()); err != nil {
			m.logger.Warn("comment restore failed", "session", id, "error", err)
		}
	}
	s := New(id, f.Config, Deps{
		Scene:     st,
		Viewport:  vp,
		Queue:     q,
		Comments:  cm,
		Completer: f.Completer,
		Snapshot:  f.Snapshot,
		Bus:       f.Bus,
		Logger:    log,
	})

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		// Lost a race to another connection resuming the same canvas.
		m.mu.Unlock()
		s.Close()
		return existing
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session opened", "session", id)
	return s
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.NewDomainError("session.get", domain.ErrNotFound, id)
	}
	return s, nil
}

// Close tears down one session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.NewDomainError("session.close", domain.ErrNotFound, id)
	}
	s.Close()
	m.logger.Info("session closed", "session", id)
	return nil
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// PruneIdle closes sessions inactive for longer than maxIdle and returns
// how many were reaped. Sessions with a turn in flight are spared.
func (m *Manager) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if !s.InFlight() && s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.logger.Info("idle session reaped", "session", s.ID)
	}
	return len(stale)
}

// CloseAll tears down every session, used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
