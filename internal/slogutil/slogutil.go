package slogutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelSilent is above every standard level and suppresses all output.
const LevelSilent = slog.Level(100)

// NewHandler returns the handler for logging.format: "json" gives one JSON
// object per record, anything else the routemap line format.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return NewLineHandler(w, opts)
}

// NewLogger creates a logger using the routemap line format.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, "text", level))
}

// NewFileLogger creates a logger appending to path.
func NewFileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f, level), f, nil
}

// NewDiscardLogger creates a logger that drops everything. Used by tests.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, &slog.HandlerOptions{Level: LevelSilent}))
}

// LevelFromString converts debug, info, warn or error (any case) to a slog.Level.
// Unrecognized strings map to info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity maps CLI -v counts to a level: 0 warn, 1 info, 2+ debug.
// quiet wins over any verbosity.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	if quiet {
		return LevelSilent
	}
	switch verbosity {
	case 0:
		return slog.LevelWarn
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// TeeHandler fans records out to several handlers.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler creates a handler that writes to all provided handlers.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	return &TeeHandler{handlers: handlers}
}

// Enabled returns true if any handler is enabled for the level.
func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes the record to every enabled handler and returns the first error.
func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs applies attrs to every wrapped handler.
func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: next}
}

// WithGroup applies the group to every wrapped handler.
func (t *TeeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: next}
}
