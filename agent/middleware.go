// Copyright (c) Microsoft. All rights reserved.

package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/jochenvw/toolcompare/chat"
)

// Request carries the inputs of an agent run through the middleware
// pipeline.
type Request struct {
	// Turns is the conversation so far, ending with the user turn being
	// answered.
	Turns []chat.Turn

	// Input is the text of that user turn.
	Input string

	// Trace receives the run's events. Run creates one when it is nil.
	Trace *Trace
}

// Response is the outcome of an agent run.
type Response struct {
	Text string

	// ResponseID is the id of the completion that produced Text.
	ResponseID string

	// Usage is summed over every model call of the run.
	Usage chat.Usage

	// Steps counts the tool calls the agent made.
	Steps int

	Trace *Trace
}

// Handler is the function signature for processing an agent run.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps a [Handler] to add cross-cutting behavior.
// Middleware should call next to continue the chain, or return early to short-circuit.
type Middleware func(next Handler) Handler

// chainMiddleware applies middleware in order (first in list = outermost wrapper).
func chainMiddleware(handler Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}

// LoggingMiddleware returns a [Middleware] that logs every agent run.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			logger.DebugContext(ctx, "agent run started", "turn_count", len(req.Turns))

			resp, err := next(ctx, req)
			if err != nil {
				logger.ErrorContext(ctx, "agent run failed",
					"duration", time.Since(start),
					"error", err,
				)
				return nil, err
			}

			logger.InfoContext(ctx, "agent run finished",
				"duration", time.Since(start),
				"response_id", resp.ResponseID,
				"steps", resp.Steps,
				"total_tokens", resp.Usage.TotalTokens,
			)
			return resp, nil
		}
	}
}
