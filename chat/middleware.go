// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"context"
	"log/slog"
	"time"
)

// ChatHandler is the function signature for one model call.
type ChatHandler func(ctx context.Context, turns []Turn, opts *ChatOptions) (*Completion, error)

// ChatMiddleware wraps a [ChatHandler] to add cross-cutting behavior.
// Middleware should call next to continue the chain, or return early to
// short-circuit.
type ChatMiddleware func(next ChatHandler) ChatHandler

// FunctionHandler is the function signature for invoking a tool.
type FunctionHandler func(ctx context.Context, tool Tool, args map[string]any) (any, error)

// FunctionMiddleware wraps a [FunctionHandler] to add cross-cutting behavior.
type FunctionMiddleware func(next FunctionHandler) FunctionHandler

// ChainChatMiddleware applies middleware in order (first in list = outermost wrapper).
func ChainChatMiddleware(handler ChatHandler, mws ...ChatMiddleware) ChatHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}

// ChainFunctionMiddleware applies middleware in order, like [ChainChatMiddleware].
func ChainFunctionMiddleware(handler FunctionHandler, mws ...FunctionMiddleware) FunctionHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}

// LoggingMiddleware returns a [ChatMiddleware] that logs every model call.
func LoggingMiddleware(logger *slog.Logger) ChatMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatHandler) ChatHandler {
		return func(ctx context.Context, turns []Turn, opts *ChatOptions) (*Completion, error) {
			start := time.Now()
			logger.DebugContext(ctx, "chat completion started",
				"turn_count", len(turns),
			)

			resp, err := next(ctx, turns, opts)

			duration := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "chat completion failed",
					"duration", duration,
					"error", err,
				)
				return nil, err
			}

			logger.InfoContext(ctx, "chat completion finished",
				"duration", duration,
				"completion_id", resp.ID,
				"function_call", resp.FunctionCall != nil,
				"prompt_tokens", resp.Usage.PromptTokens,
				"completion_tokens", resp.Usage.CompletionTokens,
			)
			return resp, nil
		}
	}
}

// FunctionLoggingMiddleware returns a [FunctionMiddleware] that logs every
// tool invocation.
func FunctionLoggingMiddleware(logger *slog.Logger) FunctionMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next FunctionHandler) FunctionHandler {
		return func(ctx context.Context, tool Tool, args map[string]any) (any, error) {
			start := time.Now()
			result, err := next(ctx, tool, args)
			if err != nil {
				logger.WarnContext(ctx, "tool invocation failed",
					"tool", tool.Name(),
					"duration", time.Since(start),
					"error", err,
				)
				return nil, err
			}
			logger.InfoContext(ctx, "tool invoked",
				"tool", tool.Name(),
				"duration", time.Since(start),
			)
			return result, nil
		}
	}
}
