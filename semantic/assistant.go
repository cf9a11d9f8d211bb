// Copyright (c) Microsoft. All rights reserved.

package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jochenvw/toolcompare/chat"
	"github.com/jochenvw/toolcompare/telemetry"
)

var _ chat.Assistant = (*Assistant)(nil)

// Assistant answers every prompt with a fresh prompt function: earlier
// turns of the session are never sent. The answer turn carries the log
// records of the run as raw detail.
type Assistant struct {
	*chat.FeedbackRecorder

	kernel *Kernel
	level  slog.Leveler
	sink   telemetry.Sink
	logger *slog.Logger
}

// Option configures an [Assistant].
type Option func(*Assistant)

// WithAuditSink sets where completion and feedback events go.
func WithAuditSink(s telemetry.Sink) Option {
	return func(a *Assistant) {
		if s != nil {
			a.sink = s
		}
	}
}

// WithLogger sets the assistant's own logger. The kernel keeps its logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCaptureLevel sets the lowest level of the records kept with an
// answer. Default: debug.
func WithCaptureLevel(level slog.Leveler) Option {
	return func(a *Assistant) { a.level = level }
}

// NewAssistant creates an Assistant that runs prompts on k.
func NewAssistant(k *Kernel, opts ...Option) *Assistant {
	a := &Assistant{
		kernel: k,
		level:  slog.LevelDebug,
		sink:   telemetry.Discard{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.FeedbackRecorder = chat.NewFeedbackRecorder(a.sink, a.logger)
	return a
}

// Submit appends userText and the answer to it to s. On failure only the
// user turn is appended.
func (a *Assistant) Submit(ctx context.Context, s *chat.Session, userText string) ([]chat.Turn, error) {
	turns, err := s.Exchange(func(t *chat.Transcript) error {
		defer chat.FlushAudit(ctx, a.sink, a.logger)
		t.Append(chat.NewUserTurn(userText))

		records := NewMemoryHandler(a.level)
		k := a.kernel.WithLogger(slog.New(Tee(a.kernel.Logger().Handler(), records)))

		res, err := k.CreateFunction(userText).Invoke(ctx, nil)
		if err != nil {
			return err
		}
		a.sink.Emit(ctx, chat.NewCompletionEvent(userText, res.Sent, res.Completion, res.Elapsed))

		detail, err := json.Marshal(records.Records())
		if err != nil {
			return fmt.Errorf("encode log records: %w", err)
		}
		t.Append(chat.Turn{
			Role:       chat.RoleAssistant,
			Content:    &res.Text,
			ResponseID: res.Completion.ID,
			RawDetail:  detail,
		})
		return nil
	})
	if err != nil && !errors.Is(err, chat.ErrSessionBusy) {
		a.logger.WarnContext(ctx, "submission failed",
			"session_id", s.ID(),
			"error", err,
		)
	}
	return turns, err
}
