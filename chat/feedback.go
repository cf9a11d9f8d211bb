// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"context"
	"log/slog"

	"github.com/jochenvw/toolcompare/telemetry"
)

// FeedbackRecorder rates assistant turns and audits the ratings. Every
// [Assistant] embeds one.
type FeedbackRecorder struct {
	sink   telemetry.Sink
	logger *slog.Logger
}

// NewFeedbackRecorder creates a FeedbackRecorder. Nil arguments mean
// [telemetry.Discard] and slog.Default.
func NewFeedbackRecorder(sink telemetry.Sink, logger *slog.Logger) *FeedbackRecorder {
	if sink == nil {
		sink = telemetry.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackRecorder{sink: sink, logger: logger}
}

// RecordFeedback rates the first assistant turn in s whose response id is
// responseID, and emits a feedback audit event.
//
// Feedback is set once: later calls for the same turn are ignored. Unknown
// ids and invalid values are ignored as well, since stale UI callbacks must
// not break the session. The return value reports whether the rating was
// stored.
func (r *FeedbackRecorder) RecordFeedback(ctx context.Context, s *Session, responseID string, value Feedback) bool {
	if value != FeedbackPositive && value != FeedbackNegative {
		r.logger.WarnContext(ctx, "ignoring feedback with invalid value",
			"response_id", responseID,
			"feedback", string(value),
		)
		return false
	}

	turn, ok := s.Transcript().setFeedback(responseID, value)
	if !ok {
		r.logger.DebugContext(ctx, "feedback not recorded",
			"session_id", s.ID(),
			"response_id", responseID,
		)
		return false
	}

	r.sink.Emit(ctx, telemetry.FeedbackEvent{
		CompletionID: turn.ResponseID,
		Feedback:     string(turn.Feedback),
	})
	FlushAudit(ctx, r.sink, r.logger)
	return true
}
