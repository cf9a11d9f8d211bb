// Copyright (c) Microsoft. All rights reserved.

package chat_test

import (
	"context"
	"sync"

	"github.com/jochenvw/toolcompare/chat"
)

// scriptedClient answers each Complete call with respond(n), where n is the
// 1-based call number, and records every request.
type scriptedClient struct {
	mu      sync.Mutex
	calls   int
	seen    [][]chat.Turn
	opts    []*chat.ChatOptions
	respond func(ctx context.Context, n int, turns []chat.Turn) (*chat.Completion, error)
}

func (c *scriptedClient) Complete(ctx context.Context, turns []chat.Turn, opts *chat.ChatOptions) (*chat.Completion, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.seen = append(c.seen, turns)
	c.opts = append(c.opts, opts)
	c.mu.Unlock()
	return c.respond(ctx, n, turns)
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func answer(id, text string) *chat.Completion {
	return &chat.Completion{
		ID:      id,
		Role:    chat.RoleAssistant,
		Content: &text,
		Usage:   chat.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		Raw:     []byte(`{"id":"` + id + `"}`),
	}
}

func functionCall(name, args string) *chat.Completion {
	return &chat.Completion{
		ID:           "call-" + name,
		Role:         chat.RoleAssistant,
		FunctionCall: &chat.FunctionCall{Name: name, Arguments: args},
	}
}

// callsThenAnswer requests k function calls to name before answering.
func callsThenAnswer(k int, name, args string) func(context.Context, int, []chat.Turn) (*chat.Completion, error) {
	return func(_ context.Context, n int, _ []chat.Turn) (*chat.Completion, error) {
		if n <= k {
			return functionCall(name, args), nil
		}
		return answer("final", "done"), nil
	}
}

func echoTool() *chat.FunctionTool {
	return chat.NewTypedTool("echo", "Echoes its input",
		func(ctx context.Context, args struct {
			Text string `json:"text" jsonschema:"required"`
		}) (any, error) {
			return map[string]string{"echo": args.Text}, nil
		},
	)
}

func mustRegistry(tools ...chat.Tool) *chat.Registry {
	r, err := chat.NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}
