// Copyright (c) Microsoft. All rights reserved.

// Package telemetry records audit events for chat completions and user
// feedback.
//
// Events are handed to a [Sink] fire-and-forget via Emit; the orchestrator
// calls Flush once at the end of every submission. Sinks provided here:
//
//   - [LogSink]: writes each event as a structured slog record
//   - [SQLiteSink]: buffers events and persists them on Flush
//   - [Recorder]: keeps events in memory for inspection
//   - [Multi]: fans out to several sinks
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event names as they appear in the audit log.
const (
	EventCompletion = "chat completion"
	EventFeedback   = "feedback"
)

// Event is a single audit record.
type Event interface {
	// Name returns the event name, e.g. [EventCompletion].
	Name() string

	// Dimensions returns the event payload as flat key/value pairs.
	Dimensions() map[string]any
}

// Sink accepts audit events.
type Sink interface {
	// Emit records ev. It never fails; delivery problems surface on Flush.
	Emit(ctx context.Context, ev Event)

	// Flush delivers any buffered events.
	Flush(ctx context.Context) error
}

// CompletionEvent describes one successful chat-completion call.
type CompletionEvent struct {
	CompletionID string
	Prompt       string
	Response     string

	// Conversation is the JSON-encoded role/content list sent to the model.
	Conversation json.RawMessage

	// Usage is the JSON-encoded token usage reported by the service.
	Usage json.RawMessage

	// Filter results are only present on some API versions.
	PromptFilterResults   json.RawMessage
	ResponseFilterResults json.RawMessage

	Elapsed time.Duration
}

func (CompletionEvent) Name() string { return EventCompletion }

func (e CompletionEvent) Dimensions() map[string]any {
	return map[string]any{
		"completionId":          e.CompletionID,
		"prompt":                e.Prompt,
		"response":              e.Response,
		"conversation":          jsonOr(e.Conversation, "[]"),
		"usage":                 jsonOr(e.Usage, "{}"),
		"promptFilterResults":   jsonOr(e.PromptFilterResults, "{}"),
		"responseFilterResults": jsonOr(e.ResponseFilterResults, "{}"),
		"timeInMilliseconds":    e.Elapsed.Milliseconds(),
	}
}

// FeedbackEvent records a user's rating of a completion.
type FeedbackEvent struct {
	CompletionID string
	Feedback     string
}

func (FeedbackEvent) Name() string { return EventFeedback }

func (e FeedbackEvent) Dimensions() map[string]any {
	return map[string]any{
		"completionId": e.CompletionID,
		"feedback":     e.Feedback,
	}
}

func jsonOr(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	return string(raw)
}

// completionID extracts the correlation id shared by all event kinds.
func completionID(ev Event) string {
	id, _ := ev.Dimensions()["completionId"].(string)
	return id
}

// Discard is a [Sink] that drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event)   {}
func (Discard) Flush(context.Context) error { return nil }

// Multi fans events out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// Flush flushes every sink and joins their errors.
func (m Multi) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
