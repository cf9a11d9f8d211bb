// Copyright (c) Microsoft. All rights reserved.

package semantic

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Record is a log record captured by a [MemoryHandler]. Attribute keys of
// nested groups are joined with dots.
type Record struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// MemoryHandler is a [slog.Handler] that keeps every record it handles in
// memory. Handlers derived with WithAttrs or WithGroup share the records of
// the handler they came from.
type MemoryHandler struct {
	level  slog.Leveler
	store  *recordStore
	attrs  map[string]any
	prefix string
}

type recordStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryHandler creates a MemoryHandler that keeps records at level and
// above. A nil level keeps everything from debug up.
func NewMemoryHandler(level slog.Leveler) *MemoryHandler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &MemoryHandler{level: level, store: &recordStore{}}
}

func (h *MemoryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *MemoryHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := maps.Clone(h.attrs)
	if attrs == nil && r.NumAttrs() > 0 {
		attrs = make(map[string]any, r.NumAttrs())
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.records = append(h.store.records, Record{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *MemoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = maps.Clone(h.attrs)
	if h2.attrs == nil {
		h2.attrs = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		flatten(h2.attrs, h.prefix, a)
	}
	return &h2
}

func (h *MemoryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// Records returns the captured records in order.
func (h *MemoryHandler) Records() []Record {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return slices.Clone(h.store.records)
}

func flatten(into map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			flatten(into, p, g)
		}
		return
	}
	into[prefix+a.Key] = plainValue(a.Value)
}

// plainValue converts v to something encoding/json renders readably.
func plainValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

// teeHandler hands every record to each of its handlers.
type teeHandler []slog.Handler

// Tee returns a [slog.Handler] that writes to all of handlers; nil entries
// are skipped.
func Tee(handlers ...slog.Handler) slog.Handler {
	var t teeHandler
	for _, h := range handlers {
		if h != nil {
			t = append(t, h)
		}
	}
	return t
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
