// Copyright (c) Microsoft. All rights reserved.

package agent

import (
	"encoding/json"
	"sync"

	"github.com/jochenvw/toolcompare/chat"
)

// Names of the events an agent run records.
const (
	EventChainStart     = "chain_start"
	EventChatModelStart = "chat_model_start"
	EventLLMEnd         = "llm_end"
	EventAgentAction    = "agent_action"
	EventToolStart      = "tool_start"
	EventToolEnd        = "tool_end"
	EventToolError      = "tool_error"
	EventAgentFinish    = "agent_finish"
	EventChainEnd       = "chain_end"
	EventChainError     = "chain_error"
)

// Event is one step of an agent run. It marshals as a single-key object,
// {name: data}.
type Event struct {
	Name string
	Data map[string]any
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{e.Name: e.Data})
}

// Trace records the events of one agent run in order. The final assistant
// turn carries it as raw detail. A nil *Trace discards events.
type Trace struct {
	mu     sync.Mutex
	events []Event
}

// NewTrace creates an empty Trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Add records an event.
func (t *Trace) Add(name string, data map[string]any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, Event{Name: name, Data: data})
}

// Events returns the recorded events in order.
func (t *Trace) Events() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Names returns the names of the recorded events in order.
func (t *Trace) Names() []string {
	events := t.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

func (t *Trace) MarshalJSON() ([]byte, error) {
	events := t.Events()
	if events == nil {
		events = []Event{}
	}
	return json.Marshal(events)
}

// completionDetail is what an llm_end event shows of a response: the raw
// body when the client kept it.
func completionDetail(resp *chat.Completion) any {
	if len(resp.Raw) > 0 && json.Valid(resp.Raw) {
		return json.RawMessage(resp.Raw)
	}
	return map[string]any{
		"id":            resp.ID,
		"content":       resp.Content,
		"function_call": resp.FunctionCall,
		"usage":         resp.Usage,
	}
}
