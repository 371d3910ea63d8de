package motion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchbook/internal/domain"
)

func newTestEngine(frames *[]Frame, opts Options) *Engine {
	sched := NewManualScheduler(time.Unix(0, 0), 16*time.Millisecond)
	return NewEngine(sched, func(f Frame) { *frames = append(*frames, f) }, opts)
}

func TestStrokeDurationClamps(t *testing.T) {
	assert.Equal(t, 300*time.Millisecond, StrokeDuration(10, 1))
	assert.Equal(t, 3*time.Second, StrokeDuration(1e6, 1))
	assert.Equal(t, time.Second, StrokeDuration(300, 1))
	// Speed multiplier divides the clamped duration.
	assert.Equal(t, 150*time.Millisecond, StrokeDuration(10, 2))
}

func TestTraceDegenerateSequences(t *testing.T) {
	var frames []Frame
	e := newTestEngine(&frames, Options{})

	require.NoError(t, e.Trace(context.Background(), nil))
	assert.Empty(t, frames)

	p := domain.Point{X: 4, Y: 9}
	require.NoError(t, e.Trace(context.Background(), []domain.Point{p}))
	require.Len(t, frames, 1)
	assert.Equal(t, p, frames[0].Pos)
	assert.Equal(t, 1.0, frames[0].Progress)
}

func TestTraceCoversFullPath(t *testing.T) {
	var frames []Frame
	e := newTestEngine(&frames, Options{Seed: 7})

	pts := []domain.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}
	require.NoError(t, e.Trace(context.Background(), pts))
	require.NotEmpty(t, frames)

	last := frames[len(frames)-1]
	assert.Equal(t, domain.Point{X: 100, Y: 0}, last.Pos)
	assert.Equal(t, 1.0, last.Progress)

	for i := 1; i < len(frames); i++ {
		assert.GreaterOrEqual(t, frames[i].Progress, frames[i-1].Progress)
		assert.True(t, frames[i].Drawing)
	}
}

func TestTraceTremorIsDeterministic(t *testing.T) {
	run := func() []Frame {
		var frames []Frame
		e := newTestEngine(&frames, Options{Seed: 42})
		require.NoError(t, e.Trace(context.Background(), []domain.Point{{X: 0, Y: 0}, {X: 200, Y: 50}}))
		return frames
	}
	assert.Equal(t, run(), run())
}

func TestTraceTremorStaysBounded(t *testing.T) {
	var frames []Frame
	e := newTestEngine(&frames, Options{Seed: 3, JitterAmp: 2})
	require.NoError(t, e.Trace(context.Background(), []domain.Point{{X: 0, Y: 0}, {X: 300, Y: 0}}))
	for _, f := range frames {
		// A horizontal line only deviates vertically by tremor.
		assert.LessOrEqual(t, f.Pos.Y, 2.5)
		assert.GreaterOrEqual(t, f.Pos.Y, -2.5)
	}
}

func TestGlideShortDistanceJumps(t *testing.T) {
	var frames []Frame
	e := newTestEngine(&frames, Options{})

	from := domain.Point{X: 0, Y: 0}
	to := domain.Point{X: 10, Y: 0}
	require.NoError(t, e.Glide(context.Background(), from, to))
	require.NotEmpty(t, frames)
	// Single jump frame at the destination, no intermediate arc.
	require.Len(t, frames, 1)
	assert.Equal(t, to, frames[0].Pos)
	assert.False(t, frames[0].Drawing)
}

func TestGlideArcsAwayFromStraightLine(t *testing.T) {
	var frames []Frame
	e := newTestEngine(&frames, Options{Seed: 11})

	require.NoError(t, e.Glide(context.Background(), domain.Point{X: 0, Y: 0}, domain.Point{X: 200, Y: 0}))
	require.Greater(t, len(frames), 2)

	// The arc must leave the straight line between the endpoints.
	var maxDev float64
	for _, f := range frames {
		if d := abs(f.Pos.Y); d > maxDev {
			maxDev = d
		}
		assert.False(t, f.Drawing)
	}
	assert.Greater(t, maxDev, 5.0)

	end := frames[len(frames)-1]
	assert.InDelta(t, 200, end.Pos.X, 1e-9)
	assert.InDelta(t, 0, end.Pos.Y, 1e-9)
}

func TestTraceCancellation(t *testing.T) {
	var frames []Frame
	e := newTestEngine(&frames, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Trace(ctx, []domain.Point{{X: 0, Y: 0}, {X: 500, Y: 500}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStampPauseCompletes(t *testing.T) {
	var frames []Frame
	e := newTestEngine(&frames, Options{})
	require.NoError(t, e.StampPause(context.Background()))
	assert.Empty(t, frames)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
