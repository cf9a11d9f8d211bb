// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jochenvw/toolcompare/telemetry"
)

// DefaultMaxRecursion is the default number of chained function-call
// round-trips allowed per submission.
const DefaultMaxRecursion = 5

var _ Assistant = (*Orchestrator)(nil)

// Orchestrator produces assistant turns for a session: it sends the
// transcript to a [ChatClient], runs any function the model requests,
// and loops until the model answers or the recursion bound is hit.
//
// An Orchestrator holds no conversation state and is safe to share across
// sessions.
type Orchestrator struct {
	*FeedbackRecorder

	client       ChatClient
	registry     *Registry
	maxRecursion int
	sink         telemetry.Sink
	logger       *slog.Logger

	chatMiddleware     []ChatMiddleware
	functionMiddleware []FunctionMiddleware

	complete ChatHandler
	invoke   FunctionHandler
}

// Option configures an [Orchestrator] via [NewOrchestrator].
type Option func(*Orchestrator)

// WithRegistry sets the tools advertised to the model. Without one, no
// functions are sent and every submission is a single call.
func WithRegistry(r *Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithMaxRecursion overrides [DefaultMaxRecursion]. Negative values are
// ignored.
func WithMaxRecursion(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRecursion = n
		}
	}
}

// WithAuditSink sets where completion and feedback events go.
func WithAuditSink(s telemetry.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithChatMiddleware adds [ChatMiddleware] around every model call.
func WithChatMiddleware(mws ...ChatMiddleware) Option {
	return func(o *Orchestrator) { o.chatMiddleware = append(o.chatMiddleware, mws...) }
}

// WithFunctionMiddleware adds [FunctionMiddleware] around every tool invocation.
func WithFunctionMiddleware(mws ...FunctionMiddleware) Option {
	return func(o *Orchestrator) { o.functionMiddleware = append(o.functionMiddleware, mws...) }
}

// NewOrchestrator creates an Orchestrator for client.
func NewOrchestrator(client ChatClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:       client,
		maxRecursion: DefaultMaxRecursion,
		sink:         telemetry.Discard{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.FeedbackRecorder = NewFeedbackRecorder(o.sink, o.logger)
	o.complete = ChainChatMiddleware(o.client.Complete, o.chatMiddleware...)
	o.invoke = ChainFunctionMiddleware(func(ctx context.Context, t Tool, args map[string]any) (any, error) {
		return t.Invoke(ctx, args)
	}, o.functionMiddleware...)
	return o
}

// MaxRecursion returns the configured recursion bound.
func (o *Orchestrator) MaxRecursion() int { return o.maxRecursion }

// Registry returns the tools advertised to the model; it may be nil.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// submission carries per-Submit state down the recursion.
type submission struct {
	transcript *Transcript
	prompt     string
}

// Submit appends userText as a user turn and runs the model until it
// produces a final answer. It returns the turns it appended.
//
// Each model call appends either a function-call/result pair or the final
// assistant turn, and only after the call (and tool) succeeded. Errors are
// returned to the caller without retry; the transcript then holds every
// step completed before the failure.
func (o *Orchestrator) Submit(ctx context.Context, s *Session, userText string) ([]Turn, error) {
	turns, err := s.Exchange(func(t *Transcript) error {
		defer o.flush(ctx)
		t.Append(NewUserTurn(userText))
		return o.runModel(ctx, &submission{transcript: t, prompt: userText}, 0)
	})
	if err != nil && !errors.Is(err, ErrSessionBusy) {
		o.logger.WarnContext(ctx, "submission failed",
			"session_id", s.ID(),
			"error", err,
		)
	}
	return turns, err
}

func (o *Orchestrator) runModel(ctx context.Context, sub *submission, depth int) error {
	if depth > o.maxRecursion {
		return &RecursionLimitError{Depth: depth, Limit: o.maxRecursion}
	}

	turns := sub.transcript.Turns()
	start := time.Now()
	resp, err := o.complete(ctx, turns, o.chatOptions())
	if err != nil {
		if !errors.Is(err, ErrExternalCall) {
			err = fmt.Errorf("%w: chat completion: %w", ErrExternalCall, err)
		}
		return err
	}
	if resp == nil {
		return fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}
	o.auditCompletion(ctx, sub.prompt, turns, resp, time.Since(start))

	if resp.FunctionCall == nil {
		role := resp.Role
		if role == "" {
			role = RoleAssistant
		}
		sub.transcript.Append(Turn{
			Role:       role,
			Content:    resp.Content,
			ResponseID: resp.ID,
			RawDetail:  resp.Raw,
		})
		return nil
	}

	call := *resp.FunctionCall
	result, err := o.callFunction(ctx, call)
	if err != nil {
		return err
	}

	callDetail, _ := json.Marshal(call)
	sub.transcript.Append(
		Turn{Role: RoleAssistant, ToolCall: &call, RawDetail: callDetail},
		Turn{Role: RoleFunction, ToolName: call.Name, Content: &result, RawDetail: json.RawMessage(result)},
	)

	o.logger.DebugContext(ctx, "function call completed",
		"tool", call.Name,
		"depth", depth,
	)
	return o.runModel(ctx, sub, depth+1)
}

func (o *Orchestrator) chatOptions() *ChatOptions {
	if o.registry.Len() == 0 {
		return &ChatOptions{}
	}
	return &ChatOptions{Tools: o.registry.Tools(), ToolChoice: ToolChoiceAuto}
}

// callFunction dispatches a model function call and returns its
// JSON-encoded result.
func (o *Orchestrator) callFunction(ctx context.Context, call FunctionCall) (string, error) {
	tool, ok := o.registry.Lookup(call.Name)
	if !ok {
		return "", &ToolError{
			ToolName: call.Name,
			Message:  "not registered",
			Err:      ErrUnknownTool,
		}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return "", &ToolError{
			ToolName: call.Name,
			Message:  fmt.Sprintf("arguments %q: %v", call.Arguments, err),
			Err:      ErrMalformedArguments,
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := o.invoke(ctx, tool, args)
	if err != nil {
		if errors.Is(err, ErrTool) {
			return "", err
		}
		return "", &ToolError{
			ToolName: call.Name,
			Message:  err.Error(),
			Err:      fmt.Errorf("%w: %w", ErrExternalCall, err),
		}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", &ToolError{
			ToolName: call.Name,
			Message:  "encode result: " + err.Error(),
			Err:      ErrTool,
		}
	}
	return string(encoded), nil
}

func (o *Orchestrator) auditCompletion(ctx context.Context, prompt string, sent []Turn, resp *Completion, elapsed time.Duration) {
	o.sink.Emit(ctx, NewCompletionEvent(prompt, sent, resp, elapsed))
}

func (o *Orchestrator) flush(ctx context.Context) {
	FlushAudit(ctx, o.sink, o.logger)
}
