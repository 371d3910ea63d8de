package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"sketchbook/internal/domain"
	"sketchbook/internal/infra/config"
)

// CircuitBreakerCompleter wraps a Completer with circuit breaker
// protection. When the endpoint fails repeatedly, the circuit opens and
// subsequent turns fail fast without reaching it, preventing retry
// storms while it recovers. The breaker guards stream initiation only;
// errors after the connection is up flow through the event channel and
// do not trip it.
type CircuitBreakerCompleter struct {
	inner   domain.Completer
	breaker *gobreaker.CircuitBreaker[<-chan domain.ActorEvent]
	logger  *slog.Logger
}

// NewCircuitBreakerCompleter wraps inner with a circuit breaker.
// Zero-valued cfg fields fall back to the defaults from config.
func NewCircuitBreakerCompleter(inner domain.Completer, cfg config.BreakerConfig, logger *slog.Logger) *CircuitBreakerCompleter {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[<-chan domain.ActorEvent](gobreaker.Settings{
		Name:        "completion-endpoint",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &CircuitBreakerCompleter{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Stream implements domain.Completer. Calls are routed through the
// circuit breaker.
func (c *CircuitBreakerCompleter) Stream(ctx context.Context, req domain.CompletionRequest) (<-chan domain.ActorEvent, error) {
	ch, err := c.breaker.Execute(func() (<-chan domain.ActorEvent, error) {
		return c.inner.Stream(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("completion endpoint circuit open: %w", err)
		}
		return nil, err
	}
	return ch, nil
}

// State returns the current circuit breaker state for monitoring.
func (c *CircuitBreakerCompleter) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current failure/success counts.
func (c *CircuitBreakerCompleter) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

var _ domain.Completer = (*CircuitBreakerCompleter)(nil)
