package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sketchbook/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishReachesTypedAndCatchAll(t *testing.T) {
	b := New(testLogger())
	defer b.Close()

	var typed, everything atomic.Int64
	b.Subscribe(domain.EventCursorFrame, func(context.Context, domain.Event) { typed.Add(1) })
	b.SubscribeAll(func(context.Context, domain.Event) { everything.Add(1) })

	b.Publish(context.Background(), domain.Event{Type: domain.EventCursorFrame})
	b.Publish(context.Background(), domain.Event{Type: domain.EventTurnDone})
	b.Close()

	assert.Equal(t, int64(1), typed.Load())
	assert.Equal(t, int64(2), everything.Load())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(testLogger())
	var n atomic.Int64
	unsub := b.Subscribe(domain.EventTurnDone, func(context.Context, domain.Event) { n.Add(1) })
	unsub()

	b.Publish(context.Background(), domain.Event{Type: domain.EventTurnDone})
	b.Close()
	assert.Zero(t, n.Load())
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	b := New(testLogger())
	var n atomic.Int64
	b.Subscribe(domain.EventTurnDone, func(context.Context, domain.Event) { n.Add(1) })
	b.Close()

	b.Publish(context.Background(), domain.Event{Type: domain.EventTurnDone})
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, n.Load())
}

func TestPanickingHandlerIsRecovered(t *testing.T) {
	b := New(testLogger())
	var after atomic.Bool
	b.Subscribe(domain.EventTurnDone, func(context.Context, domain.Event) { panic("boom") })
	b.Subscribe(domain.EventTurnDone, func(context.Context, domain.Event) { after.Store(true) })

	b.Publish(context.Background(), domain.Event{Type: domain.EventTurnDone})
	b.Close()
	assert.True(t, after.Load())
}
