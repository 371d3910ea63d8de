package motion

import (
	"context"
	"time"
)

// Scheduler is the frame-scheduling primitive the engine awaits between
// cursor frames. The real implementation ticks at the render rate; tests
// substitute a manual scheduler to step time deterministically.
type Scheduler interface {
	// Wait blocks until the next frame and returns its timestamp.
	Wait(ctx context.Context) (time.Time, error)
}

// TickScheduler paces frames with a wall-clock ticker.
type TickScheduler struct {
	interval time.Duration
}

// DefaultFrameInterval approximates a 60fps render loop.
const DefaultFrameInterval = time.Second / 60

// NewTickScheduler creates a real-time scheduler. A non-positive interval
// falls back to DefaultFrameInterval.
func NewTickScheduler(interval time.Duration) *TickScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TickScheduler{interval: interval}
}

func (s *TickScheduler) Wait(ctx context.Context) (time.Time, error) {
	t := time.NewTimer(s.interval)
	defer t.Stop()
	select {
	case now := <-t.C:
		return now, nil
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	}
}

// ManualScheduler steps virtual time by a fixed amount per frame. It
// never blocks, which makes playback tests instantaneous.
type ManualScheduler struct {
	now  time.Time
	step time.Duration
}

// NewManualScheduler creates a scheduler that advances step per Wait call.
func NewManualScheduler(start time.Time, step time.Duration) *ManualScheduler {
	return &ManualScheduler{now: start, step: step}
}

func (s *ManualScheduler) Wait(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.now = s.now.Add(s.step)
	return s.now, nil
}

// Now returns the scheduler's current virtual time.
func (s *ManualScheduler) Now() time.Time { return s.now }
