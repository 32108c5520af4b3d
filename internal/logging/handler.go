package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// SwappableHandler forwards records to a replaceable root handler. Handlers
// derived through WithAttrs and WithGroup share the root, so loggers created
// before a Swap observe the new root as well.
type SwappableHandler struct {
	root   *atomic.Pointer[slog.Handler]
	derive []func(slog.Handler) slog.Handler
}

// NewSwappableHandler creates a handler around initial.
func NewSwappableHandler(initial slog.Handler) *SwappableHandler {
	root := new(atomic.Pointer[slog.Handler])
	root.Store(&initial)
	return &SwappableHandler{root: root}
}

// Swap replaces the root handler for this handler and every handler derived
// from it.
func (sh *SwappableHandler) Swap(next slog.Handler) {
	sh.root.Store(&next)
}

func (sh *SwappableHandler) current() slog.Handler {
	h := *sh.root.Load()
	for _, d := range sh.derive {
		h = d(h)
	}
	return h
}

// Enabled consults the root handler; attributes and groups never change the
// level decision.
func (sh *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*sh.root.Load()).Enabled(ctx, level)
}

func (sh *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	return sh.current().Handle(ctx, r)
}

func (sh *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return sh
	}
	return sh.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (sh *SwappableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return sh
	}
	return sh.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (sh *SwappableHandler) with(d func(slog.Handler) slog.Handler) *SwappableHandler {
	derive := make([]func(slog.Handler) slog.Handler, 0, len(sh.derive)+1)
	derive = append(derive, sh.derive...)
	derive = append(derive, d)
	return &SwappableHandler{root: sh.root, derive: derive}
}
