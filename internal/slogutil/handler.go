// Package slogutil provides the slog handler and logger constructors used across routemap.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ComponentKey is the attribute key rendered in front of the message
// instead of among the trailing key=value pairs.
const ComponentKey = "component"

// LineHandler formats records on a single line:
//
//	TIMESTAMP [level] component: Message | key=value key=value
type LineHandler struct {
	w         io.Writer
	level     slog.Leveler
	component string
	attrs     []slog.Attr
	groups    []string
	mu        *sync.Mutex
}

// NewLineHandler creates a new line handler writing to w.
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &LineHandler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteString(" [")
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")

	component := h.component
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == ComponentKey && len(h.groups) == 0 {
			component = a.Value.String()
			return true
		}
		attrs = append(attrs, h.qualify(a))
		return true
	})

	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	buf.WriteString(r.Message)

	first := true
	for _, a := range attrs {
		if a.Key == "" {
			continue
		}
		if first {
			buf.WriteString(" |")
			first = false
		}
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == ComponentKey && len(h.groups) == 0 {
			next.component = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return next
}

// WithGroup returns a new handler that prefixes later keys with name.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *LineHandler) clone() *LineHandler {
	attrs := make([]slog.Attr, len(h.attrs))
	copy(attrs, h.attrs)
	groups := make([]string, len(h.groups))
	copy(groups, h.groups)
	return &LineHandler{
		w:         h.w,
		level:     h.level,
		component: h.component,
		attrs:     attrs,
		groups:    groups,
		mu:        h.mu,
	}
}

// qualify prefixes an attribute key with the open groups.
func (h *LineHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	key := a.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	return slog.Attr{Key: key, Value: a.Value}
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return fmt.Sprint(v.Any())
	}
}
