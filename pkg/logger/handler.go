package logger

import (
	"context"
	"log/slog"
)

// hook edits a record before it reaches the output handler.
type hook func(ctx context.Context, rec *slog.Record)

type hookHandler struct {
	next  slog.Handler
	hooks []hook
}

func withHooks(next slog.Handler, hooks ...hook) slog.Handler {
	if len(hooks) == 0 {
		return next
	}
	return &hookHandler{next: next, hooks: hooks}
}

func (h *hookHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h *hookHandler) Handle(ctx context.Context, rec slog.Record) error {
	rec = rec.Clone()
	for _, fn := range h.hooks {
		fn(ctx, &rec)
	}
	return h.next.Handle(ctx, rec)
}

func (h *hookHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &hookHandler{next: h.next.WithAttrs(attrs), hooks: h.hooks}
}

func (h *hookHandler) WithGroup(name string) slog.Handler {
	return &hookHandler{next: h.next.WithGroup(name), hooks: h.hooks}
}
