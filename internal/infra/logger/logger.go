// Package logger builds the process-wide slog logger and the
// session-scoped derivatives the canvas code logs through.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"sketchbook/internal/infra/config"
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds the process logger. Every line carries an app attribute so
// sketchbook output is attributable when the site shares a log stream
// with other services. The closer flushes the output file when logging
// to disk and is a no-op for standard streams.
func New(cfg config.LoggerConfig) (*slog.Logger, func() error, error) {
	w, closer, err := output(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("logger output %q: %w", cfg.Output, err)
	}
	h := handler(cfg.Format, w, &slog.HandlerOptions{Level: Level(cfg.Level)})
	return slog.New(h).With(slog.String("app", "sketchbook")), closer, nil
}

// ForSession scopes a logger to one canvas session, so every line the
// session's queue, comment overlay, and turn loop emit names the canvas
// it belongs to.
func ForSession(log *slog.Logger, sessionID string) *slog.Logger {
	return log.With(slog.String("session", sessionID))
}

// Level maps a config string to a slog level, defaulting to info.
func Level(s string) slog.Level {
	if l, ok := levels[strings.ToLower(s)]; ok {
		return l
	}
	return slog.LevelInfo
}

func handler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// output resolves a config target to a writer. "discard" suppresses
// logging entirely, which the test harness uses.
func output(target string) (io.Writer, func() error, error) {
	switch strings.ToLower(target) {
	case "stdout":
		return os.Stdout, nopClose, nil
	case "stderr", "":
		return os.Stderr, nopClose, nil
	case "discard":
		return io.Discard, nopClose, nil
	default:
		f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}

func nopClose() error { return nil }
