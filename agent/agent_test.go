// Copyright (c) Microsoft. All rights reserved.

package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/jochenvw/toolcompare/agent"
	"github.com/jochenvw/toolcompare/chat"
	"github.com/jochenvw/toolcompare/telemetry"
)

// scriptedClient answers call n (1-based) with respond(n) and records every
// request.
type scriptedClient struct {
	mu      sync.Mutex
	calls   int
	seen    [][]chat.Turn
	opts    []*chat.ChatOptions
	respond func(n int, turns []chat.Turn) (*chat.Completion, error)
}

func (c *scriptedClient) Complete(_ context.Context, turns []chat.Turn, opts *chat.ChatOptions) (*chat.Completion, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.seen = append(c.seen, turns)
	c.opts = append(c.opts, opts)
	c.mu.Unlock()
	return c.respond(n, turns)
}

func answer(id, text string) *chat.Completion {
	return &chat.Completion{
		ID:      id,
		Role:    chat.RoleAssistant,
		Content: &text,
		Usage:   chat.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}
}

func functionCall(name, args string) *chat.Completion {
	return &chat.Completion{
		ID:           "call-" + name,
		Role:         chat.RoleAssistant,
		FunctionCall: &chat.FunctionCall{Name: name, Arguments: args},
		Usage:        chat.Usage{PromptTokens: 5, CompletionTokens: 1, TotalTokens: 6},
	}
}

func callsThenAnswer(k int, name, args string) func(int, []chat.Turn) (*chat.Completion, error) {
	return func(n int, _ []chat.Turn) (*chat.Completion, error) {
		if n <= k {
			return functionCall(name, args), nil
		}
		return answer("final", "done"), nil
	}
}

func chainTool(name string, fn func(input string) (any, error)) chat.Tool {
	return chat.NewTypedTool(name, "Answers "+name+" questions",
		func(_ context.Context, args struct {
			Input string `json:"input" jsonschema:"required"`
		}) (any, error) {
			return fn(args.Input)
		},
	)
}

func registry(t *testing.T, tools ...chat.Tool) *chat.Registry {
	t.Helper()
	r, err := chat.NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRun_PlainAnswer(t *testing.T) {
	client := &scriptedClient{respond: func(int, []chat.Turn) (*chat.Completion, error) {
		return answer("abc", "Paris"), nil
	}}
	a := agent.NewAgent(client)

	resp, err := a.Run(context.Background(), &agent.Request{
		Turns: []chat.Turn{chat.NewUserTurn("capital of France?")},
		Input: "capital of France?",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Text != "Paris" || resp.ResponseID != "abc" || resp.Steps != 0 {
		t.Errorf("response = %+v", resp)
	}

	sent := client.seen[0]
	if len(sent) != 2 || sent[0].Role != chat.RoleSystem || sent[0].Text() != agent.DefaultInstructions {
		t.Errorf("sent = %+v", sent)
	}
	if len(client.opts[0].Tools) != 0 || client.opts[0].ToolChoice != "" {
		t.Errorf("options without tools = %+v", client.opts[0])
	}

	want := []string{
		agent.EventChainStart,
		agent.EventChatModelStart,
		agent.EventLLMEnd,
		agent.EventAgentFinish,
		agent.EventChainEnd,
	}
	if got := resp.Trace.Names(); !slices.Equal(got, want) {
		t.Errorf("trace = %v, want %v", got, want)
	}
}

func TestRun_InvokesTools(t *testing.T) {
	var inputs []string
	search := chainTool("search", func(input string) (any, error) {
		inputs = append(inputs, input)
		return "Hotel Sunrise is on the beach.", nil
	})
	client := &scriptedClient{respond: callsThenAnswer(2, "search", `{"input":"beach hotel"}`)}
	var audit telemetry.Recorder
	a := agent.NewAgent(client, agent.WithTools(registry(t, search)), agent.WithAuditSink(&audit))

	resp, err := a.Run(context.Background(), &agent.Request{
		Turns: []chat.Turn{chat.NewUserTurn("find a beach hotel")},
		Input: "find a beach hotel",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Text != "done" || resp.Steps != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Usage.TotalTokens != 6+6+12 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if !slices.Equal(inputs, []string{"beach hotel", "beach hotel"}) {
		t.Errorf("tool inputs = %v", inputs)
	}
	if opts := client.opts[0]; len(opts.Tools) != 1 || opts.ToolChoice != chat.ToolChoiceAuto {
		t.Errorf("options = %+v", opts)
	}

	// The third call sees both calls and their observations.
	third := client.seen[2]
	if len(third) != 2+4 {
		t.Fatalf("third request turns = %d, want 6", len(third))
	}
	if third[3].Role != chat.RoleFunction || third[3].ToolName != "search" || third[3].Text() != "Hotel Sunrise is on the beach." {
		t.Errorf("observation = %+v", third[3])
	}

	want := []string{
		agent.EventChainStart,
		agent.EventChatModelStart, agent.EventLLMEnd, agent.EventAgentAction, agent.EventToolStart, agent.EventToolEnd,
		agent.EventChatModelStart, agent.EventLLMEnd, agent.EventAgentAction, agent.EventToolStart, agent.EventToolEnd,
		agent.EventChatModelStart, agent.EventLLMEnd, agent.EventAgentFinish,
		agent.EventChainEnd,
	}
	if got := resp.Trace.Names(); !slices.Equal(got, want) {
		t.Errorf("trace = %v\nwant    %v", got, want)
	}
	if n := len(audit.Events()); n != 3 {
		t.Errorf("completion events = %d, want 3", n)
	}
}

func TestRun_UnknownToolIsReportedToModel(t *testing.T) {
	client := &scriptedClient{respond: callsThenAnswer(1, "weather", `{"input":"x"}`)}
	a := agent.NewAgent(client, agent.WithTools(registry(t,
		chainTool("chat", func(string) (any, error) { return "", nil }),
		chainTool("search", func(string) (any, error) { return "", nil }),
	)))

	resp, err := a.Run(context.Background(), &agent.Request{Input: "q", Turns: []chat.Turn{chat.NewUserTurn("q")}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	observation := client.seen[1][len(client.seen[1])-1]
	if got, want := observation.Text(), "weather is not a valid tool, try one of [chat, search]."; got != want {
		t.Errorf("observation = %q, want %q", got, want)
	}
	if !slices.Contains(resp.Trace.Names(), agent.EventToolError) {
		t.Errorf("trace %v has no tool_error", resp.Trace.Names())
	}
}

func TestRun_TerminateOnUnknown(t *testing.T) {
	client := &scriptedClient{respond: callsThenAnswer(1, "weather", `{}`)}
	a := agent.NewAgent(client, agent.WithInvocationConfig(agent.InvocationConfig{TerminateOnUnknown: true}))

	_, err := a.Run(context.Background(), &agent.Request{Input: "q"})
	if !errors.Is(err, chat.ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}

func TestRun_ConsecutiveToolErrors(t *testing.T) {
	failing := chainTool("api", func(string) (any, error) { return nil, errors.New("stats offline") })
	client := &scriptedClient{respond: callsThenAnswer(10, "api", `{"input":"q"}`)}
	trace := agent.NewTrace()
	a := agent.NewAgent(client,
		agent.WithTools(registry(t, failing)),
		agent.WithInvocationConfig(agent.InvocationConfig{MaxConsecutiveErrors: 2}),
	)

	_, err := a.Run(context.Background(), &agent.Request{Input: "q", Trace: trace})
	if !errors.Is(err, agent.ErrToolExecution) || !errors.Is(err, chat.ErrExternalCall) {
		t.Fatalf("err = %v", err)
	}
	if client.calls != 2 {
		t.Errorf("model calls = %d, want 2", client.calls)
	}
	names := trace.Names()
	if names[len(names)-1] != agent.EventChainError {
		t.Errorf("last event = %q, want chain_error", names[len(names)-1])
	}
}

func TestRun_ErrorObservationDetail(t *testing.T) {
	failing := chainTool("api", func(string) (any, error) { return nil, errors.New("stats offline") })
	for _, detailed := range []bool{false, true} {
		client := &scriptedClient{respond: callsThenAnswer(1, "api", `{"input":"q"}`)}
		a := agent.NewAgent(client,
			agent.WithTools(registry(t, failing)),
			agent.WithInvocationConfig(agent.InvocationConfig{IncludeDetailedErrors: detailed}),
		)
		if _, err := a.Run(context.Background(), &agent.Request{Input: "q"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		got := client.seen[1][len(client.seen[1])-1].Text()
		if detailed != strings.Contains(got, "stats offline") {
			t.Errorf("detailed=%v observation = %q", detailed, got)
		}
	}
}

func TestRun_MaxIterations(t *testing.T) {
	echo := chainTool("chat", func(in string) (any, error) { return in, nil })
	client := &scriptedClient{respond: callsThenAnswer(100, "chat", `{"input":"again"}`)}
	a := agent.NewAgent(client,
		agent.WithTools(registry(t, echo)),
		agent.WithInvocationConfig(agent.InvocationConfig{MaxIterations: 3}),
	)

	_, err := a.Run(context.Background(), &agent.Request{Input: "loop"})
	if !errors.Is(err, agent.ErrMaxIterations) || !errors.Is(err, chat.ErrRecursionLimitExceeded) {
		t.Fatalf("err = %v", err)
	}
	if client.calls != 3 {
		t.Errorf("model calls = %d, want 3", client.calls)
	}
}

func TestRun_ModelFailure(t *testing.T) {
	client := &scriptedClient{respond: func(int, []chat.Turn) (*chat.Completion, error) {
		return nil, errors.New("connection reset")
	}}
	a := agent.NewAgent(client)

	_, err := a.Run(context.Background(), &agent.Request{Input: "q"})
	if !errors.Is(err, chat.ErrExternalCall) {
		t.Fatalf("err = %v, want ErrExternalCall", err)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) agent.Middleware {
		return func(next agent.Handler) agent.Handler {
			return func(ctx context.Context, req *agent.Request) (*agent.Response, error) {
				order = append(order, name+">")
				resp, err := next(ctx, req)
				order = append(order, "<"+name)
				return resp, err
			}
		}
	}
	client := &scriptedClient{respond: func(int, []chat.Turn) (*chat.Completion, error) {
		order = append(order, "model")
		return answer("a", "ok"), nil
	}}
	a := agent.NewAgent(client, agent.WithMiddleware(mw("outer"), mw("inner"), agent.LoggingMiddleware(nil)))

	if _, err := a.Run(context.Background(), &agent.Request{Input: "q"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"outer>", "inner>", "model", "<inner", "<outer"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestSubmit_AppendsAnswerWithTrace(t *testing.T) {
	tool := chainTool("chat", func(string) (any, error) { return "Paris", nil })
	client := &scriptedClient{respond: callsThenAnswer(1, "chat", `{"input":"capital of France?"}`)}
	var audit telemetry.Recorder
	a := agent.NewAgent(client, agent.WithTools(registry(t, tool)), agent.WithAuditSink(&audit))
	session := chat.NewSession()

	turns, err := a.Submit(context.Background(), session, "capital of France?")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(turns) != 2 || session.Transcript().Len() != 2 {
		t.Fatalf("returned %d turns, transcript has %d; want 2 and 2", len(turns), session.Transcript().Len())
	}
	final := turns[1]
	if final.Role != chat.RoleAssistant || final.Text() != "done" || final.ResponseID != "final" {
		t.Errorf("final turn = %+v", final)
	}

	var events []map[string]json.RawMessage
	if err := json.Unmarshal(final.RawDetail, &events); err != nil {
		t.Fatalf("RawDetail is not an event list: %v\n%s", err, final.RawDetail)
	}
	var names []string
	for _, ev := range events {
		for name := range ev {
			names = append(names, name)
		}
	}
	if names[0] != agent.EventChainStart || names[len(names)-1] != agent.EventChainEnd {
		t.Errorf("event names = %v", names)
	}
	if !slices.Contains(names, agent.EventToolEnd) {
		t.Errorf("event names %v lack tool_end", names)
	}
	if audit.Flushes() != 1 {
		t.Errorf("flushes = %d, want 1", audit.Flushes())
	}
}

func TestSubmit_HistoryExcludesDetail(t *testing.T) {
	client := &scriptedClient{respond: func(n int, _ []chat.Turn) (*chat.Completion, error) {
		return answer("r", "answer"), nil
	}}
	a := agent.NewAgent(client, agent.WithInstructions(""))
	session := chat.NewSession()
	ctx := context.Background()

	if _, err := a.Submit(ctx, session, "first"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := a.Submit(ctx, session, "second"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sent := client.seen[1]
	if len(sent) != 3 {
		t.Fatalf("second request turns = %d, want 3", len(sent))
	}
	for i, turn := range sent {
		if turn.RawDetail != nil || turn.ResponseID != "" {
			t.Errorf("turn %d leaks detail: %+v", i, turn)
		}
	}
	if sent[2].Text() != "second" {
		t.Errorf("last sent turn = %q", sent[2].Text())
	}
}

func TestSubmit_FailureKeepsUserTurn(t *testing.T) {
	client := &scriptedClient{respond: func(int, []chat.Turn) (*chat.Completion, error) {
		return nil, errors.New("boom")
	}}
	a := agent.NewAgent(client)
	session := chat.NewSession()

	turns, err := a.Submit(context.Background(), session, "hello")
	if !errors.Is(err, chat.ErrExternalCall) {
		t.Fatalf("err = %v", err)
	}
	if len(turns) != 1 || turns[0].Role != chat.RoleUser {
		t.Errorf("turns = %+v", turns)
	}
}

func TestRecordFeedback(t *testing.T) {
	client := &scriptedClient{respond: func(int, []chat.Turn) (*chat.Completion, error) {
		return answer("abc", "hi"), nil
	}}
	var audit telemetry.Recorder
	a := agent.NewAgent(client, agent.WithAuditSink(&audit))
	session := chat.NewSession()
	ctx := context.Background()

	if _, err := a.Submit(ctx, session, "hello"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !a.RecordFeedback(ctx, session, "abc", chat.FeedbackPositive) {
		t.Fatal("rating should be recorded")
	}
	if a.RecordFeedback(ctx, session, "abc", chat.FeedbackNegative) {
		t.Error("second rating should be ignored")
	}
	if got := session.Transcript().Turns()[1].Feedback; got != chat.FeedbackPositive {
		t.Errorf("feedback = %q", got)
	}
}
