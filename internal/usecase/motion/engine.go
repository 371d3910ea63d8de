// Package motion animates the actor's cursor: eased stroke playback with
// simulated hand tremor, and arced glide transitions between drawn items.
package motion

import (
	"context"
	"math"
	"math/rand"
	"time"

	"sketchbook/internal/domain"
	"sketchbook/internal/usecase/geometry"
)

const (
	minStrokeDuration = 300 * time.Millisecond
	maxStrokeDuration = 3 * time.Second
	// strokeRate is path pixels per second before easing.
	strokeRate = 300.0

	minGlideDuration = 160 * time.Millisecond
	maxGlideDuration = 640 * time.Millisecond

	// minArcDistance is the glide length below which the cursor skips the
	// arc and jumps after a short pause.
	minArcDistance = 25.0
	shortPause     = 120 * time.Millisecond

	// stampPause is the fixed delay before an ASCII block appears.
	stampPause = 80 * time.Millisecond

	// turnInfluence is the path distance over which a sharp vertex slows
	// the cursor.
	turnInfluence = 14.0

	defaultJitterAmp = 1.3
)

// Frame is one sampled cursor position during playback.
type Frame struct {
	Pos      domain.Point
	Progress float64 // 0..1 along the current item
	Drawing  bool    // false during glides and pauses
}

// Options tune an Engine. Zero values select sensible defaults.
type Options struct {
	Speed     float64 // playback speed multiplier (1 = natural)
	JitterAmp float64 // max tremor offset in canvas px
	Seed      int64   // tremor noise seed; also seeds arc randomness
}

// Engine produces time-parameterized cursor motion. It is owned by a
// single animation queue and is not safe for concurrent playback calls.
type Engine struct {
	sched   Scheduler
	onFrame func(Frame)
	speed   float64
	jitter  float64
	seed    float64
	rng     *rand.Rand
}

// NewEngine creates an engine emitting frames through onFrame.
func NewEngine(sched Scheduler, onFrame func(Frame), opts Options) *Engine {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.JitterAmp <= 0 {
		opts.JitterAmp = defaultJitterAmp
	}
	return &Engine{
		sched:   sched,
		onFrame: onFrame,
		speed:   opts.Speed,
		jitter:  opts.JitterAmp,
		seed:    float64(opts.Seed%977) + 0.137,
		rng:     rand.New(rand.NewSource(opts.Seed)),
	}
}

// StrokeDuration derives playback time from total path length:
// clamp(300ms, 3000ms, len/300 * 1s) divided by the speed multiplier.
func StrokeDuration(pathLen, speed float64) time.Duration {
	d := time.Duration(pathLen / strokeRate * float64(time.Second))
	if d < minStrokeDuration {
		d = minStrokeDuration
	}
	if d > maxStrokeDuration {
		d = maxStrokeDuration
	}
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(d) / speed)
}

// Trace animates the cursor through pts, emitting a frame per scheduler
// tick until the full path is covered. Degenerate sequences place the
// cursor directly.
func (e *Engine) Trace(ctx context.Context, pts []domain.Point) error {
	switch len(pts) {
	case 0:
		return nil
	case 1:
		e.onFrame(Frame{Pos: pts[0], Progress: 1, Drawing: true})
		return nil
	}

	total := geometry.PathLength(pts)
	if total == 0 {
		e.onFrame(Frame{Pos: pts[0], Progress: 1, Drawing: true})
		return nil
	}
	dur := StrokeDuration(total, e.speed)
	baseV := total / dur.Seconds() // px per second before modulation

	cum := cumulativeLengths(pts)
	turns := vertexSharpness(pts)

	last, err := e.sched.Wait(ctx)
	if err != nil {
		return err
	}

	var s float64 // arc distance covered
	for s < total {
		now, err := e.sched.Wait(ctx)
		if err != nil {
			return err
		}
		dt := now.Sub(last).Seconds()
		last = now
		if dt <= 0 {
			continue
		}

		p := s / total
		v := baseV * easeVelocity(p) * turnSlowdown(s, cum, turns)
		s += v * dt
		if s > total {
			s = total
		}

		pos := pointAt(pts, cum, s)
		if s < total {
			pos = e.applyTremor(pos, s, v/baseV)
		}
		e.onFrame(Frame{Pos: pos, Progress: s / total, Drawing: true})
	}
	return nil
}

// Glide moves the cursor from the end of one item to the start of the
// next along a perpendicular-offset arc. Distances under minArcDistance
// skip the arc and jump after a short pause.
func (e *Engine) Glide(ctx context.Context, from, to domain.Point) error {
	d := geometry.Dist(from, to)
	if d < minArcDistance {
		if err := e.pause(ctx, scaled(shortPause, e.speed)); err != nil {
			return err
		}
		e.onFrame(Frame{Pos: to, Progress: 1})
		return nil
	}

	// Arc height: randomized within bounds, scaled down for short hops.
	h := (0.18 + e.rng.Float64()*0.22) * d
	if h > 60 {
		h = 60
	}
	if d < 80 {
		h *= d / 80
	}
	if e.rng.Intn(2) == 0 {
		h = -h
	}

	mid := domain.Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2}
	perp := domain.Point{X: -(to.Y - from.Y) / d, Y: (to.X - from.X) / d}
	ctrl := domain.Point{X: mid.X + perp.X*h, Y: mid.Y + perp.Y*h}

	dur := glideDuration(d, e.speed)

	last, err := e.sched.Wait(ctx)
	if err != nil {
		return err
	}
	var elapsed time.Duration
	for elapsed < dur {
		now, err := e.sched.Wait(ctx)
		if err != nil {
			return err
		}
		elapsed += now.Sub(last)
		last = now
		t := easeInOutCubic(clamp01(elapsed.Seconds() / dur.Seconds()))
		u := 1 - t
		pos := domain.Point{
			X: u*u*from.X + 2*u*t*ctrl.X + t*t*to.X,
			Y: u*u*from.Y + 2*u*t*ctrl.Y + t*t*to.Y,
		}
		e.onFrame(Frame{Pos: pos, Progress: t})
	}
	return nil
}

// StampPause waits the fixed pre-stamp delay for ASCII blocks.
func (e *Engine) StampPause(ctx context.Context) error {
	return e.pause(ctx, scaled(stampPause, e.speed))
}

func (e *Engine) pause(ctx context.Context, d time.Duration) error {
	last, err := e.sched.Wait(ctx)
	if err != nil {
		return err
	}
	var elapsed time.Duration
	for elapsed < d {
		now, err := e.sched.Wait(ctx)
		if err != nil {
			return err
		}
		elapsed += now.Sub(last)
		last = now
	}
	return nil
}

// applyTremor offsets pos with deterministic pseudo-noise, larger when
// the cursor moves slowly.
func (e *Engine) applyTremor(pos domain.Point, s, vNorm float64) domain.Point {
	amp := e.jitter / (1 + 2*vNorm)
	x := s * 0.11
	return domain.Point{
		X: pos.X + amp*pseudoNoise(e.seed, x),
		Y: pos.Y + amp*pseudoNoise(e.seed*1.7+3.1, x),
	}
}

// pseudoNoise is a seeded sine mix in [-1, 1]; the same seed and input
// always produce the same tremor.
func pseudoNoise(seed, x float64) float64 {
	return 0.6*math.Sin(x*12.9898+seed) + 0.4*math.Sin(x*4.1414+seed*2.3)
}

func glideDuration(dist, speed float64) time.Duration {
	d := time.Duration(dist * 2.2 * float64(time.Millisecond))
	if d < minGlideDuration {
		d = minGlideDuration
	}
	if d > maxGlideDuration {
		d = maxGlideDuration
	}
	return scaled(d, speed)
}

func scaled(d time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(d) / speed)
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// easeVelocity is the derivative of easeInOutCubic with a floor so the
// cursor always makes progress at the extremes.
func easeVelocity(p float64) float64 {
	var v float64
	if p < 0.5 {
		v = 12 * p * p
	} else {
		u := 2 - 2*p
		v = 3 * u * u
	}
	if v < 0.3 {
		v = 0.3
	}
	return v
}

func cumulativeLengths(pts []domain.Point) []float64 {
	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + geometry.Dist(pts[i-1], pts[i])
	}
	return cum
}

// vertexSharpness computes, per interior vertex, how sharply the path
// turns there: 0 for straight-through, 1 for a full reversal.
func vertexSharpness(pts []domain.Point) []float64 {
	sharp := make([]float64, len(pts))
	for i := 1; i < len(pts)-1; i++ {
		a, b, c := pts[i-1], pts[i], pts[i+1]
		d1 := geometry.Dist(a, b)
		d2 := geometry.Dist(b, c)
		if d1 == 0 || d2 == 0 {
			continue
		}
		dot := ((b.X-a.X)*(c.X-b.X) + (b.Y-a.Y)*(c.Y-b.Y)) / (d1 * d2)
		// Angle change normalized to [0, 1].
		sharp[i] = math.Acos(clamp(dot, -1, 1)) / math.Pi
	}
	return sharp
}

// turnSlowdown dampens velocity near sharp vertices.
func turnSlowdown(s float64, cum, sharp []float64) float64 {
	slow := 1.0
	for i := 1; i < len(cum)-1; i++ {
		if sharp[i] == 0 {
			continue
		}
		d := math.Abs(cum[i] - s)
		if d >= turnInfluence {
			continue
		}
		falloff := 1 - d/turnInfluence
		if f := 1 - 0.65*sharp[i]*falloff; f < slow {
			slow = f
		}
	}
	return slow
}

// pointAt interpolates the position at arc distance s along pts.
func pointAt(pts []domain.Point, cum []float64, s float64) domain.Point {
	if s <= 0 {
		return pts[0]
	}
	last := len(pts) - 1
	if s >= cum[last] {
		return pts[last]
	}
	for i := 1; i <= last; i++ {
		if cum[i] >= s {
			seg := cum[i] - cum[i-1]
			if seg == 0 {
				return pts[i]
			}
			t := (s - cum[i-1]) / seg
			return domain.Point{
				X: pts[i-1].X + (pts[i].X-pts[i-1].X)*t,
				Y: pts[i-1].Y + (pts[i].Y-pts[i-1].Y)*t,
			}
		}
	}
	return pts[last]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }
