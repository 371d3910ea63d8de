// Package eventbus is the in-process publish/subscribe fabric connecting
// the drawing engine to the gateway.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"sketchbook/internal/domain"
)

// all is the registry key for subscribers that want every event.
const all = domain.EventType("*")

// Bus is a goroutine-safe event bus. Handlers run in their own
// goroutines; a panicking handler is recovered and logged.
type Bus struct {
	mu     sync.RWMutex
	subs   map[domain.EventType]map[uint64]domain.EventHandler
	nextID atomic.Uint64
	logger *slog.Logger
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[domain.EventType]map[uint64]domain.EventHandler),
		logger: logger,
	}
}

// Publish fans out an event to typed and catch-all subscribers.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	handlers := make([]domain.EventHandler, 0, len(b.subs[event.Type])+len(b.subs[all]))
	for _, h := range b.subs[event.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range b.subs[all] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h domain.EventHandler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						"event", string(event.Type), "panic", r)
				}
			}()
			h(ctx, event)
		}(h)
	}
}

// Subscribe registers a handler for one event type and returns an
// unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.register(eventType, handler)
}

// SubscribeAll registers a handler for every event and returns an
// unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.register(all, handler)
}

func (b *Bus) register(key domain.EventType, handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[uint64]domain.EventHandler)
	}
	b.subs[key][id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[key], id)
		b.mu.Unlock()
	}
}

// Close prevents new publishes and waits for in-flight handlers.
// Idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.wg.Wait()
}
