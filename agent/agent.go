// Copyright (c) Microsoft. All rights reserved.

// Package agent provides the agent variant of the playground: an [Agent]
// that answers each prompt by running its own tool-calling loop over a set
// of chain tools, and stores the run's event [Trace] with the answer.
//
// Unlike [chat.Orchestrator], the agent keeps its intermediate steps out of
// the session transcript: a submission appends the user turn and one final
// assistant turn whose raw detail is the trace.
//
//	a := agent.NewAgent(client,
//	    agent.WithTools(registry),
//	    agent.WithAuditSink(sink),
//	)
//	turns, err := a.Submit(ctx, session, "Which hero won most in May?")
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jochenvw/toolcompare/chat"
	"github.com/jochenvw/toolcompare/telemetry"
)

// DefaultInstructions is the system prompt of an agent created without
// [WithInstructions].
const DefaultInstructions = "You are a helpful AI assistant."

var (
	// ErrMaxIterations is returned when the model is still calling tools
	// after the configured number of iterations.
	ErrMaxIterations = fmt.Errorf("%w: agent stopped after max iterations", chat.ErrRecursionLimitExceeded)

	// ErrToolExecution is returned when too many tool calls fail in a row.
	ErrToolExecution = fmt.Errorf("%w: max consecutive tool errors reached", chat.ErrTool)
)

var _ chat.Assistant = (*Agent)(nil)

// Agent is a tool-using conversational agent.
//
// Create one with [NewAgent] and functional options. An Agent holds no
// conversation state and is safe to share across sessions.
type Agent struct {
	*chat.FeedbackRecorder

	id               string
	name             string
	client           chat.ChatClient
	instructions     string
	registry         *chat.Registry
	middleware       []Middleware
	chatMiddleware   []chat.ChatMiddleware
	fnMiddleware     []chat.FunctionMiddleware
	invocationConfig InvocationConfig
	sink             telemetry.Sink
	logger           *slog.Logger

	complete chat.ChatHandler
	invoke   chat.FunctionHandler
	run      Handler
}

// Option configures an [Agent] via [NewAgent].
type Option func(*Agent)

// WithName sets the agent's display name.
func WithName(name string) Option {
	return func(a *Agent) { a.name = name }
}

// WithInstructions replaces [DefaultInstructions]. An empty string sends
// no system turn.
func WithInstructions(instructions string) Option {
	return func(a *Agent) { a.instructions = instructions }
}

// WithTools sets the tools the agent may call.
func WithTools(r *chat.Registry) Option {
	return func(a *Agent) { a.registry = r }
}

// WithMiddleware adds [Middleware] around every run.
func WithMiddleware(mws ...Middleware) Option {
	return func(a *Agent) { a.middleware = append(a.middleware, mws...) }
}

// WithChatMiddleware adds [chat.ChatMiddleware] around every model call.
func WithChatMiddleware(mws ...chat.ChatMiddleware) Option {
	return func(a *Agent) { a.chatMiddleware = append(a.chatMiddleware, mws...) }
}

// WithFunctionMiddleware adds [chat.FunctionMiddleware] around every tool
// invocation.
func WithFunctionMiddleware(mws ...chat.FunctionMiddleware) Option {
	return func(a *Agent) { a.fnMiddleware = append(a.fnMiddleware, mws...) }
}

// WithInvocationConfig overrides the default [InvocationConfig] for the
// tool-calling loop.
func WithInvocationConfig(cfg InvocationConfig) Option {
	return func(a *Agent) { a.invocationConfig = cfg }
}

// WithAuditSink sets where completion and feedback events go.
func WithAuditSink(s telemetry.Sink) Option {
	return func(a *Agent) {
		if s != nil {
			a.sink = s
		}
	}
}

// WithLogger sets the agent's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAgent creates an Agent with the given [chat.ChatClient] and options.
func NewAgent(client chat.ChatClient, opts ...Option) *Agent {
	a := &Agent{
		id:               uuid.NewString(),
		client:           client,
		instructions:     DefaultInstructions,
		invocationConfig: DefaultInvocationConfig(),
		sink:             telemetry.Discard{},
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.invocationConfig = a.invocationConfig.withDefaults()
	a.FeedbackRecorder = chat.NewFeedbackRecorder(a.sink, a.logger)
	a.complete = chat.ChainChatMiddleware(a.client.Complete, a.chatMiddleware...)
	a.invoke = chat.ChainFunctionMiddleware(func(ctx context.Context, t chat.Tool, args map[string]any) (any, error) {
		return t.Invoke(ctx, args)
	}, a.fnMiddleware...)
	a.run = chainMiddleware(a.handle, a.middleware...)
	return a
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Registry returns the agent's tools; it may be nil.
func (a *Agent) Registry() *chat.Registry { return a.registry }

// Run answers req.Input given the conversation in req.Turns. It does not
// touch any session.
func (a *Agent) Run(ctx context.Context, req *Request) (*Response, error) {
	if req.Trace == nil {
		req.Trace = NewTrace()
	}
	return a.run(ctx, req)
}

func (a *Agent) handle(ctx context.Context, req *Request) (*Response, error) {
	trace := req.Trace
	trace.Add(EventChainStart, map[string]any{"inputs": map[string]any{"input": req.Input}})

	turns := make([]chat.Turn, 0, len(req.Turns)+1)
	if a.instructions != "" {
		turns = append(turns, chat.NewSystemTurn(a.instructions))
	}
	turns = append(turns, req.Turns...)

	a.logger.DebugContext(ctx, "agent run",
		"agent_id", a.id,
		"agent_name", a.name,
		"turn_count", len(turns),
		"tool_count", a.registry.Len(),
	)

	resp, err := a.invokeFunctions(ctx, req.Input, turns, trace)
	if err != nil {
		trace.Add(EventChainError, map[string]any{"error": err.Error()})
		return nil, err
	}
	trace.Add(EventChainEnd, map[string]any{"outputs": map[string]any{"output": resp.Text}})
	resp.Trace = trace
	return resp, nil
}

func (a *Agent) chatOptions() *chat.ChatOptions {
	if a.registry.Len() == 0 {
		return &chat.ChatOptions{}
	}
	return &chat.ChatOptions{Tools: a.registry.Tools(), ToolChoice: chat.ToolChoiceAuto}
}

// Submit appends userText and the agent's answer to s. The answer turn
// carries the run's trace as raw detail; on failure only the user turn is
// appended.
func (a *Agent) Submit(ctx context.Context, s *chat.Session, userText string) ([]chat.Turn, error) {
	turns, err := s.Exchange(func(t *chat.Transcript) error {
		defer chat.FlushAudit(ctx, a.sink, a.logger)

		input := chat.NewUserTurn(userText)
		prior := append(history(t.Turns()), input)
		t.Append(input)

		resp, err := a.Run(ctx, &Request{Turns: prior, Input: userText, Trace: NewTrace()})
		if err != nil {
			return err
		}
		detail, err := json.Marshal(resp.Trace)
		if err != nil {
			return fmt.Errorf("encode agent trace: %w", err)
		}
		t.Append(chat.Turn{
			Role:       chat.RoleAssistant,
			Content:    &resp.Text,
			ResponseID: resp.ResponseID,
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

// history keeps the user and assistant text turns of a transcript: the
// conversation the agent continues.
func history(turns []chat.Turn) []chat.Turn {
	out := make([]chat.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Content == nil || t.ToolCall != nil {
			continue
		}
		if t.Role != chat.RoleUser && t.Role != chat.RoleAssistant {
			continue
		}
		out = append(out, chat.Turn{Role: t.Role, Content: t.Content})
	}
	return out
}
