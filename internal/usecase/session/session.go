// Package session ties one canvas together: the scene, the viewport, the
// animation queue, the comment overlay, and the turn loop against the
// completion endpoint.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sketchbook/internal/domain"
	"sketchbook/internal/infra/tracer"
	"sketchbook/internal/usecase/animator"
	"sketchbook/internal/usecase/comments"
	"sketchbook/internal/usecase/scene"
)

// Snapshotter renders the committed scene to a PNG the actor can look at.
type Snapshotter interface {
	RenderPNG(elements []domain.DrawingElement, width, height int) ([]byte, error)
}

// Config carries the per-canvas knobs a session forwards to the
// completion endpoint.
type Config struct {
	Width        int
	Height       int
	MinZoom      float64
	MaxZoom      float64
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	DrawingMode  string
	// TurnTimeout bounds one full actor turn including playback.
	TurnTimeout time.Duration
}

// Session is one live canvas.
type Session struct {
	ID string

	cfg       Config
	scene     *scene.Store
	viewport  *scene.Viewport
	queue     *animator.Queue
	comments  *comments.Manager
	completer domain.Completer
	snap      Snapshotter
	bus       domain.EventBus
	logger    *slog.Logger

	mu         sync.Mutex
	turns      []domain.Turn
	inFlight   bool
	closed     bool
	turnCancel context.CancelFunc
	pending    *strokeBuilder
	createdAt  time.Time
	lastActive time.Time
}

// strokeBuilder accumulates a human freehand stroke point by point until
// it is frozen into the scene.
type strokeBuilder struct {
	d     string
	color string
	width float64
}

type Deps struct {
	Scene     *scene.Store
	Viewport  *scene.Viewport
	Queue     *animator.Queue
	Comments  *comments.Manager
	Completer domain.Completer
	Snapshot  Snapshotter
	Bus       domain.EventBus
	Logger    *slog.Logger
}

func New(id string, cfg Config, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 2 * time.Minute
	}
	now := time.Now()
	return &Session{
		ID:         id,
		cfg:        cfg,
		scene:      deps.Scene,
		viewport:   deps.Viewport,
		queue:      deps.Queue,
		comments:   deps.Comments,
		completer:  deps.Completer,
		snap:       deps.Snapshot,
		bus:        deps.Bus,
		logger:     deps.Logger.With("session", id),
		createdAt:  now,
		lastActive: now,
	}
}

func (s *Session) Config() Config              { return s.cfg }
func (s *Session) Scene() *scene.Store         { return s.scene }
func (s *Session) Viewport() *scene.Viewport   { return s.viewport }
func (s *Session) Comments() *comments.Manager { return s.comments }
func (s *Session) Queue() *animator.Queue      { return s.queue }

// Turns returns a copy of the turn history, oldest first.
func (s *Session) Turns() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.turns...)
}

// LastActive reports when the session last saw a mutation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touchLocked() { s.lastActive = time.Now() }

// StartStroke begins a human freehand stroke. Any stroke still pending
// is frozen first, so a client that never sends an explicit end does not
// lose work.
func (s *Session) StartStroke(x, y float64, color string, width float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freezeStrokeLocked()
	if width <= 0 {
		width = 2
	}
	s.pending = &strokeBuilder{
		d:     fmt.Sprintf("M %.1f %.1f", x, y),
		color: color,
		width: width,
	}
	s.touchLocked()
}

// AppendStroke extends the pending stroke. Points arriving with no
// stroke in progress are dropped.
func (s *Session) AppendStroke(points []domain.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return
	}
	for _, p := range points {
		s.pending.d += fmt.Sprintf(" L %.1f %.1f", p.X, p.Y)
	}
	s.touchLocked()
}

// EndStroke freezes the pending stroke into the scene and returns the
// committed element. ok is false when no stroke was in progress.
func (s *Session) EndStroke() (domain.DrawingElement, bool) {
	s.mu.Lock()
	el, ok := s.freezeStrokeLocked()
	s.mu.Unlock()
	if ok {
		domain.PublishEvent(context.Background(), s.bus, domain.EventElementCommitted,
			s.ID, domain.ElementCommittedPayload{Element: el})
	}
	return el, ok
}

func (s *Session) freezeStrokeLocked() (domain.DrawingElement, bool) {
	if s.pending == nil {
		return domain.DrawingElement{}, false
	}
	stroke := domain.HumanStroke{
		D:     s.pending.d,
		Color: s.pending.color,
		Width: s.pending.width,
	}
	s.pending = nil
	el := s.scene.AddStroke(stroke, domain.OriginHuman)
	s.touchLocked()
	return el, true
}

// Submit hands the canvas to the actor for one turn. note is the
// human's optional description of what they just drew; it lands in the
// turn history either way. Submit returns once the stream is
// established; playback continues in the background until the done
// event drains the queue.
func (s *Session) Submit(ctx context.Context, note string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.NewDomainError("session.submit", domain.ErrSessionClosed, s.ID)
	}
	if s.inFlight {
		s.mu.Unlock()
		return domain.NewDomainError("session.submit", domain.ErrTurnInFlight, s.ID)
	}
	s.freezeStrokeLocked()
	if note != "" {
		s.turns = append(s.turns, domain.Turn{
			Who: domain.OriginHuman, Description: note, At: time.Now(),
		})
	}
	req := s.buildRequestLocked()
	s.inFlight = true
	turnCtx, cancel := context.WithTimeout(context.Background(), s.cfg.TurnTimeout)
	turnCtx, span := tracer.Turn(turnCtx, s.ID, len(req.History))
	s.turnCancel = cancel
	s.mu.Unlock()

	if s.snap != nil {
		png, err := s.snap.RenderPNG(s.scene.Elements(), s.cfg.Width, s.cfg.Height)
		if err != nil {
			s.logger.Warn("scene snapshot failed, submitting without image", "error", err)
		} else {
			req.SnapshotPNG = png
		}
	}

	events, err := s.completer.Stream(turnCtx, req)
	if err != nil {
		tracer.RecordError(span, err)
		span.End()
		cancel()
		s.endTurn()
		s.publishTurnError(err)
		return domain.NewDomainError("session.submit", domain.ErrStreamFailed, err.Error())
	}

	domain.PublishEvent(turnCtx, s.bus, domain.EventTurnStarted, s.ID, nil)
	go func() {
		defer span.End()
		s.consume(turnCtx, cancel, events)
	}()
	return nil
}

func (s *Session) buildRequestLocked() domain.CompletionRequest {
	elems := s.scene.Elements()
	history := make([]json.RawMessage, 0, len(elems))
	for _, el := range elems {
		raw, err := json.Marshal(el)
		if err != nil {
			continue
		}
		history = append(history, raw)
	}
	return domain.CompletionRequest{
		Width:        s.cfg.Width,
		Height:       s.cfg.Height,
		History:      history,
		Turns:        append([]domain.Turn(nil), s.turns...),
		Temperature:  s.cfg.Temperature,
		MaxTokens:    s.cfg.MaxTokens,
		SystemPrompt: s.cfg.SystemPrompt,
		DrawingMode:  s.cfg.DrawingMode,
	}
}

// consume drains one turn's event stream, feeding the animation queue
// and the comment overlay as events arrive.
func (s *Session) consume(ctx context.Context, cancel context.CancelFunc, events <-chan domain.ActorEvent) {
	defer cancel()
	defer s.endTurn()

	terminal := false
	for ev := range events {
		switch ev.Type {
		case domain.ActorThinking:
			domain.PublishEvent(ctx, s.bus, domain.EventActorThinking, s.ID,
				map[string]string{"text": ev.Thinking})

		case domain.ActorShape:
			if ev.Shape == nil {
				continue
			}
			s.queue.EnqueueShape(ev.Shape)
			s.queue.Process(ctx)

		case domain.ActorBlock:
			if ev.Block == nil {
				continue
			}
			s.queue.EnqueueAscii(*ev.Block)
			s.queue.Process(ctx)

		case domain.ActorSay:
			if ev.Say == nil {
				continue
			}
			s.comments.Add(ev.Say.Text, ev.Say.X, ev.Say.Y, domain.OriginActor)

		case domain.ActorWish:
			s.logger.Info("actor wish", "wish", ev.Wish)
			domain.PublishEvent(ctx, s.bus, domain.EventActorWish, s.ID,
				map[string]string{"wish": ev.Wish})

		case domain.ActorError:
			terminal = true
			s.logger.Error("actor turn failed", "error", ev.Err)
			s.queue.Clear()
			s.publishTurnError(fmt.Errorf("%s", ev.Err))

		case domain.ActorDone:
			terminal = true
			if err := s.queue.Finish(ctx); err != nil {
				s.logger.Warn("turn playback interrupted", "error", err)
			}
			s.mu.Lock()
			s.turns = append(s.turns, domain.Turn{
				Who: domain.OriginActor, Description: ev.Description, At: time.Now(),
			})
			s.touchLocked()
			s.mu.Unlock()
			domain.PublishEvent(ctx, s.bus, domain.EventTurnDone, s.ID,
				domain.TurnDonePayload{Description: ev.Description})
		}
	}

	if !terminal {
		// The stream dropped mid-turn. Whatever was queued stays queued;
		// the user sees the persona apology and can retry.
		s.queue.Clear()
		s.publishTurnError(domain.ErrStreamFailed)
	}
}

func (s *Session) endTurn() {
	s.mu.Lock()
	s.inFlight = false
	s.turnCancel = nil
	s.touchLocked()
	s.mu.Unlock()
}

func (s *Session) publishTurnError(err error) {
	s.logger.Error("turn error", "error", err)
	domain.PublishEvent(context.Background(), s.bus, domain.EventTurnError, s.ID,
		domain.TurnErrorPayload{Message: domain.PersonaError})
}

// InFlight reports whether an actor turn is currently running.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Clear wipes the drawing: any in-flight turn is cancelled, queued
// animations are dropped, and the scene empties. The comment overlay is
// left alone; annotations outlive the drawing they were pinned to.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.turnCancel != nil {
		s.turnCancel()
	}
	s.pending = nil
	s.touchLocked()
	s.mu.Unlock()

	s.queue.Clear()
	s.scene.Clear()
	domain.PublishEvent(context.Background(), s.bus, domain.EventSceneCleared, s.ID, nil)
}

// Close cancels any running turn and stops the comment timers. A closed
// session rejects further submits.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.turnCancel != nil {
		s.turnCancel()
		s.turnCancel = nil
	}
	s.mu.Unlock()
	s.queue.Clear()
	s.comments.Close()
}
