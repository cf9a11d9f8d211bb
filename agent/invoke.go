// Copyright (c) Microsoft. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jochenvw/toolcompare/chat"
)

// InvocationConfig controls the tool-calling loop of an agent run.
type InvocationConfig struct {
	// MaxIterations is the maximum number of model calls per run.
	// Default: 15.
	MaxIterations int

	// MaxConsecutiveErrors is the maximum number of consecutive tool errors
	// before aborting. Default: 3.
	MaxConsecutiveErrors int

	// TerminateOnUnknown aborts if the model calls an unknown tool instead
	// of telling it which tools exist.
	TerminateOnUnknown bool

	// IncludeDetailedErrors includes full error text in tool results sent
	// back to the model. When false, a generic error message is used.
	IncludeDetailedErrors bool
}

// DefaultInvocationConfig returns the default configuration.
func DefaultInvocationConfig() InvocationConfig {
	return InvocationConfig{
		MaxIterations:        15,
		MaxConsecutiveErrors: 3,
	}
}

func (c InvocationConfig) withDefaults() InvocationConfig {
	def := DefaultInvocationConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	return c
}

// invokeFunctions runs the tool-calling loop: call the model, run the tool
// it asks for, append the call and its observation to the scratch turns,
// and call the model again until it answers.
//
// The scratch turns never reach the session transcript; the trace records
// every step instead.
func (a *Agent) invokeFunctions(ctx context.Context, prompt string, turns []chat.Turn, trace *Trace) (*Response, error) {
	cfg := a.invocationConfig
	opts := a.chatOptions()

	var usage chat.Usage
	consecutiveErrors, steps := 0, 0

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		trace.Add(EventChatModelStart, map[string]any{"messages": chat.Conversation(turns)})

		start := time.Now()
		resp, err := a.complete(ctx, turns, opts)
		if err != nil {
			if !errors.Is(err, chat.ErrExternalCall) {
				err = fmt.Errorf("%w: chat completion: %w", chat.ErrExternalCall, err)
			}
			return nil, err
		}
		if resp == nil {
			return nil, fmt.Errorf("%w: empty completion", chat.ErrInvalidResponse)
		}
		a.sink.Emit(ctx, chat.NewCompletionEvent(prompt, turns, resp, time.Since(start)))
		usage = addUsage(usage, resp.Usage)
		trace.Add(EventLLMEnd, map[string]any{"response": completionDetail(resp)})

		if resp.FunctionCall == nil {
			text := resp.Text()
			trace.Add(EventAgentFinish, map[string]any{"output": text})
			return &Response{Text: text, ResponseID: resp.ID, Usage: usage, Steps: steps}, nil
		}

		call := *resp.FunctionCall
		steps++
		trace.Add(EventAgentAction, map[string]any{"tool": call.Name, "tool_input": call.Arguments})

		observation, err := a.callTool(ctx, call, trace)
		if err != nil {
			trace.Add(EventToolError, map[string]any{"error": err.Error()})
			if errors.Is(err, chat.ErrUnknownTool) && cfg.TerminateOnUnknown {
				return nil, err
			}
			consecutiveErrors++
			a.logger.WarnContext(ctx, "tool invocation error",
				"tool", call.Name,
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)
			if consecutiveErrors >= cfg.MaxConsecutiveErrors {
				return nil, fmt.Errorf("%w (%d): %w", ErrToolExecution, consecutiveErrors, err)
			}
			observation = a.errorObservation(call.Name, err)
		} else {
			consecutiveErrors = 0
		}

		turns = append(turns,
			chat.Turn{Role: chat.RoleAssistant, ToolCall: &call},
			chat.Turn{Role: chat.RoleFunction, ToolName: call.Name, Content: &observation},
		)
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, cfg.MaxIterations)
}

// callTool runs one tool call and returns its observation.
func (a *Agent) callTool(ctx context.Context, call chat.FunctionCall, trace *Trace) (string, error) {
	tool, ok := a.registry.Lookup(call.Name)
	if !ok {
		return "", &chat.ToolError{
			ToolName: call.Name,
			Message:  "not registered",
			Err:      chat.ErrUnknownTool,
		}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return "", &chat.ToolError{
			ToolName: call.Name,
			Message:  fmt.Sprintf("arguments %q: %v", call.Arguments, err),
			Err:      chat.ErrMalformedArguments,
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	trace.Add(EventToolStart, map[string]any{"input_str": call.Arguments})
	result, err := a.invoke(ctx, tool, args)
	if err != nil {
		if errors.Is(err, chat.ErrTool) {
			return "", err
		}
		return "", &chat.ToolError{
			ToolName: call.Name,
			Message:  err.Error(),
			Err:      fmt.Errorf("%w: %w", chat.ErrExternalCall, err),
		}
	}

	observation, err := encodeObservation(result)
	if err != nil {
		return "", &chat.ToolError{
			ToolName: call.Name,
			Message:  "encode result: " + err.Error(),
			Err:      chat.ErrTool,
		}
	}
	trace.Add(EventToolEnd, map[string]any{"output": observation})
	return observation, nil
}

// errorObservation is what the model is told when a tool call failed.
func (a *Agent) errorObservation(name string, err error) string {
	if errors.Is(err, chat.ErrUnknownTool) {
		names := make([]string, 0, a.registry.Len())
		for _, t := range a.registry.Tools() {
			names = append(names, t.Name())
		}
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", name, strings.Join(names, ", "))
	}
	if a.invocationConfig.IncludeDetailedErrors {
		return err.Error()
	}
	return "error invoking tool"
}

// encodeObservation passes text results through and JSON-encodes the rest.
func encodeObservation(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func addUsage(a, b chat.Usage) chat.Usage {
	return chat.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
