// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jochenvw/toolcompare/telemetry"
)

// Assistant produces assistant turns for a session. [Orchestrator] is the
// function-calling implementation; the agent and semantic packages provide
// the others.
type Assistant interface {
	// Submit appends userText and the turns answering it to s, and returns
	// every turn it appended, also when it fails.
	Submit(ctx context.Context, s *Session, userText string) ([]Turn, error)

	// RecordFeedback rates the assistant turn carrying responseID.
	RecordFeedback(ctx context.Context, s *Session, responseID string, value Feedback) bool
}

// NewCompletionEvent builds the audit record of one successful model call.
// prompt is the user text of the submission and sent the turns the model
// was given.
func NewCompletionEvent(prompt string, sent []Turn, resp *Completion, elapsed time.Duration) telemetry.CompletionEvent {
	conversation, _ := json.Marshal(Conversation(sent))
	usage, _ := json.Marshal(resp.Usage)
	return telemetry.CompletionEvent{
		CompletionID:          resp.ID,
		Prompt:                prompt,
		Response:              resp.Text(),
		Conversation:          conversation,
		Usage:                 usage,
		PromptFilterResults:   resp.PromptFilterResults,
		ResponseFilterResults: resp.ResponseFilterResults,
		Elapsed:               elapsed,
	}
}

// FlushAudit delivers buffered audit events. It runs even when ctx was
// cancelled, and its failure is only logged.
func FlushAudit(ctx context.Context, sink telemetry.Sink, logger *slog.Logger) {
	if err := sink.Flush(context.WithoutCancel(ctx)); err != nil {
		logger.WarnContext(ctx, "audit flush failed", "error", err)
	}
}
