package log

import (
	"context"
	"log/slog"
	"strings"
)

// FilterHandler drops records matched by a predicate before they reach the
// wrapped handler. It is installed once at startup.
type FilterHandler struct {
	inner slog.Handler
	drop  func(slog.Record) bool
}

func NewFilterHandler(inner slog.Handler, drop func(slog.Record) bool) *FilterHandler {
	return &FilterHandler{inner: inner, drop: drop}
}

func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *FilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.drop != nil && h.drop(r) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *FilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FilterHandler{inner: h.inner.WithAttrs(attrs), drop: h.drop}
}

func (h *FilterHandler) WithGroup(name string) slog.Handler {
	return &FilterHandler{inner: h.inner.WithGroup(name), drop: h.drop}
}

// MessageContains matches records whose message contains any of substrs.
// Blank entries are ignored; no entries matches nothing.
func MessageContains(substrs ...string) func(slog.Record) bool {
	var needles []string
	for _, s := range substrs {
		if s = strings.TrimSpace(s); s != "" {
			needles = append(needles, s)
		}
	}
	return func(r slog.Record) bool {
		for _, n := range needles {
			if strings.Contains(r.Message, n) {
				return true
			}
		}
		return false
	}
}
