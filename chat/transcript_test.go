// Copyright (c) Microsoft. All rights reserved.

package chat_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jochenvw/toolcompare/chat"
)

func TestTranscript_ReadsAreCopies(t *testing.T) {
	tr := chat.NewTranscript(chat.NewAssistantTurn("original", "r1"))

	turns := tr.Turns()
	*turns[0].Content = "mutated"
	turns[0].ResponseID = "other"

	again := tr.Turns()
	if again[0].Text() != "original" || again[0].ResponseID != "r1" {
		t.Errorf("stored turn changed: %+v", again[0])
	}
}

func TestTranscript_Since(t *testing.T) {
	tr := chat.NewTranscript(
		chat.NewUserTurn("a"),
		chat.NewAssistantTurn("b", "1"),
		chat.NewUserTurn("c"),
	)

	if got := tr.Since(1); len(got) != 2 || got[0].Text() != "b" {
		t.Errorf("Since(1) = %+v", got)
	}
	if got := tr.Since(3); got != nil {
		t.Errorf("Since(3) = %+v, want nil", got)
	}
	if got := tr.Since(-1); len(got) != 3 {
		t.Errorf("Since(-1) = %d turns", len(got))
	}
}

func TestTurn_JSONKeepsNullContent(t *testing.T) {
	turn := chat.Turn{Role: chat.RoleAssistant, ToolCall: &chat.FunctionCall{Name: "f", Arguments: "{}"}}
	b, err := json.Marshal(turn)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if v, ok := m["content"]; !ok || v != nil {
		t.Errorf("content = %v (present %v), want explicit null", v, ok)
	}
}

func TestConversation(t *testing.T) {
	conv := chat.Conversation([]chat.Turn{
		chat.NewUserTurn("hi"),
		{Role: chat.RoleAssistant, ToolCall: &chat.FunctionCall{Name: "f"}},
	})
	b, _ := json.Marshal(conv)
	want := `[{"role":"user","content":"hi"},{"role":"assistant","content":null}]`
	if string(b) != want {
		t.Errorf("conversation = %s, want %s", b, want)
	}
}

func TestSession_Reset(t *testing.T) {
	s := chat.NewSession(chat.WithSessionID("fixed"),
		chat.WithTranscript(chat.NewTranscript(chat.NewUserTurn("x"))))
	if s.ID() != "fixed" || s.Transcript().Len() != 1 {
		t.Fatalf("session = %s / %d", s.ID(), s.Transcript().Len())
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if s.Transcript().Len() != 0 {
		t.Error("reset should empty the transcript")
	}
	if chat.NewSession().ID() == chat.NewSession().ID() {
		t.Error("session ids should be unique")
	}
}

func TestErrorHierarchy(t *testing.T) {
	tests := []struct {
		err    error
		parent error
	}{
		{chat.ErrRecursionLimitExceeded, chat.ErrOrchestrator},
		{chat.ErrSessionBusy, chat.ErrOrchestrator},
		{chat.ErrUnknownTool, chat.ErrTool},
		{chat.ErrMalformedArguments, chat.ErrTool},
		{chat.ErrService, chat.ErrExternalCall},
		{chat.ErrContentFilter, chat.ErrExternalCall},
		{chat.ErrAuth, chat.ErrService},
		{&chat.RecursionLimitError{Depth: 6, Limit: 5}, chat.ErrRecursionLimitExceeded},
		{&chat.ServiceError{StatusCode: 400, Err: chat.ErrContentFilter}, chat.ErrService},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.parent) {
			t.Errorf("%v should wrap %v", tt.err, tt.parent)
		}
	}
	if errors.Is(chat.ErrUnknownTool, chat.ErrExternalCall) {
		t.Error("tool errors are not external")
	}
}

func TestSession_Changed(t *testing.T) {
	s := chat.NewSession()
	isClosed := func(ch <-chan struct{}) bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	before := s.Changed()
	if isClosed(before) {
		t.Fatal("no change yet")
	}
	if _, err := s.Exchange(func(tr *chat.Transcript) error {
		tr.Append(chat.NewUserTurn("hi"))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if !isClosed(before) {
		t.Error("append should close the changed channel")
	}

	afterAppend := s.Changed()
	if isClosed(afterAppend) {
		t.Error("a fresh channel should be open")
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if !isClosed(afterAppend) {
		t.Error("reset should close the changed channel")
	}

	// The new transcript is watched too.
	afterReset := s.Changed()
	s.Transcript().Append(chat.NewUserTurn("again"))
	if !isClosed(afterReset) {
		t.Error("append after reset should close the changed channel")
	}
}
