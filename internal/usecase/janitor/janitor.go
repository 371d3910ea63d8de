// Package janitor runs the recurring maintenance work: pruning aged
// visitor messages, reaping idle canvas sessions, and compacting the
// store after a sweep.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"sketchbook/internal/domain"
	"sketchbook/internal/infra/config"
)

// SessionReaper is what the janitor needs from the session registry.
type SessionReaper interface {
	PruneIdle(maxIdle time.Duration) int
}

// Vacuumer is implemented by stores that can reclaim space after a sweep.
type Vacuumer interface {
	Vacuum(ctx context.Context) error
}

// taskTimeout bounds one maintenance run.
const taskTimeout = 5 * time.Minute

// Janitor schedules the maintenance tasks on a cron runner.
type Janitor struct {
	cfg      config.JanitorConfig
	visitors domain.VisitorStore
	sessions SessionReaper
	maxIdle  time.Duration
	logger   *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a janitor. visitors may implement Vacuumer; if it does and
// vacuuming is enabled, the store is compacted after every message sweep.
func New(cfg config.JanitorConfig, visitors domain.VisitorStore, sessions SessionReaper, maxIdle time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		cfg:      cfg,
		visitors: visitors,
		sessions: sessions,
		maxIdle:  maxIdle,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the tasks and begins running them. Safe to call once.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil
	}
	j.ctx, j.cancel = context.WithCancel(ctx)

	if _, err := j.cron.AddFunc(j.cfg.MessagePruneSchedule, j.wrap("message_prune", j.pruneMessages)); err != nil {
		return fmt.Errorf("janitor: invalid message prune schedule %q: %w", j.cfg.MessagePruneSchedule, err)
	}
	if j.sessions != nil && j.cfg.SessionSweepInterval > 0 {
		j.cron.Schedule(cron.Every(j.cfg.SessionSweepInterval), cron.FuncJob(j.wrap("session_sweep", j.sweepSessions)))
	}

	j.cron.Start()
	j.started = true
	j.logger.Info("janitor started",
		"message_prune_schedule", j.cfg.MessagePruneSchedule,
		"session_sweep_interval", j.cfg.SessionSweepInterval)
	return nil
}

// Stop halts the scheduler and waits for running tasks to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.started {
		return
	}
	j.cancel()
	<-j.cron.Stop().Done()
	j.started = false
}

// wrap binds a task to the janitor's lifecycle context and logs its outcome.
func (j *Janitor) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		j.mu.Lock()
		ctx := j.ctx
		j.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}

		taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(taskCtx); err != nil {
			j.logger.Warn("janitor task failed", "task", name, "error", err, "duration", time.Since(start))
			return
		}
		j.logger.Info("janitor task completed", "task", name, "duration", time.Since(start))
	}
}

func (j *Janitor) pruneMessages(ctx context.Context) error {
	cutoff := time.Now().Add(-j.cfg.MessageTTL)
	pruned, err := j.visitors.PruneMessages(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune messages: %w", err)
	}
	if pruned > 0 {
		j.logger.Info("pruned visitor messages", "count", pruned, "cutoff", cutoff)
	}

	if j.cfg.Vacuum && pruned > 0 {
		if v, ok := j.visitors.(Vacuumer); ok {
			if err := v.Vacuum(ctx); err != nil {
				return fmt.Errorf("vacuum: %w", err)
			}
		}
	}
	return nil
}

func (j *Janitor) sweepSessions(_ context.Context) error {
	if reaped := j.sessions.PruneIdle(j.maxIdle); reaped > 0 {
		j.logger.Info("reaped idle sessions", "count", reaped, "max_idle", j.maxIdle)
	}
	return nil
}
