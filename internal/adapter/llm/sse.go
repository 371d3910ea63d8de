// Package llm talks to the drawing completion endpoint: one streaming
// POST per actor turn, answered with SSE events that decode into typed
// actor events.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"sketchbook/internal/domain"
)

// parseSSEStream reads SSE-formatted lines from body and converts each
// data payload into an ActorEvent using parseLine. The returned channel
// is closed when the stream ends, the body is closed, or ctx is
// cancelled.
func parseSSEStream(ctx context.Context, body io.ReadCloser, parseLine func(data []byte) (*domain.ActorEvent, error)) <-chan domain.ActorEvent {
	ch := make(chan domain.ActorEvent, 16)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Bytes()

			// Skip empty lines and comments.
			if len(line) == 0 || line[0] == ':' {
				continue
			}

			// We only care about "data: ..." lines.
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			data := bytes.TrimPrefix(line, []byte("data: "))

			// Common termination signal.
			if bytes.Equal(data, []byte("[DONE]")) {
				ch <- domain.ActorEvent{Type: domain.ActorDone}
				return
			}

			ev, err := parseLine(data)
			if err != nil {
				// Skip unparseable lines.
				continue
			}
			if ev == nil {
				continue
			}

			select {
			case ch <- *ev:
			case <-ctx.Done():
				return
			}

			if ev.Type == domain.ActorDone || ev.Type == domain.ActorError {
				return
			}
		}
		// An I/O error mid-stream surfaces as an error event so the
		// session knows the turn did not complete.
		if err := scanner.Err(); err != nil {
			select {
			case ch <- domain.ActorEvent{Type: domain.ActorError, Err: err.Error()}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}
