// Copyright (c) Microsoft. All rights reserved.

package telemetry

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// LogSink writes every event as one slog record at Info level. The record
// message is the event name and the dimensions are grouped under
// "custom_dimensions".
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a [LogSink]. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, ev Event) {
	dims := ev.Dimensions()
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, dims[k]))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, ev.Name(), slog.Group("custom_dimensions", attrs...))
}

// Flush is a no-op; records are written on Emit.
func (s *LogSink) Flush(context.Context) error { return nil }

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu      sync.Mutex
	events  []Event
	flushes int
}

func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Flush(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Flushes returns how many times Flush was called.
func (r *Recorder) Flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes
}
