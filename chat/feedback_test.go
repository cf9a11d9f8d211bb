// Copyright (c) Microsoft. All rights reserved.

package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jochenvw/toolcompare/chat"
	"github.com/jochenvw/toolcompare/telemetry"
)

func newRatedSession() *chat.Session {
	call := &chat.FunctionCall{Name: "echo", Arguments: `{}`}
	result := `{"echo":""}`
	return chat.NewSession(chat.WithTranscript(chat.NewTranscript(
		chat.NewUserTurn("hi"),
		chat.Turn{Role: chat.RoleAssistant, ToolCall: call},
		chat.Turn{Role: chat.RoleFunction, ToolName: "echo", Content: &result},
		chat.NewAssistantTurn("hello", "abc"),
	)))
}

func TestRecordFeedback_SetOnce(t *testing.T) {
	var audit telemetry.Recorder
	orch := chat.NewOrchestrator(&scriptedClient{}, chat.WithAuditSink(&audit))
	session := newRatedSession()
	ctx := context.Background()

	if !orch.RecordFeedback(ctx, session, "abc", chat.FeedbackPositive) {
		t.Fatal("first rating should be recorded")
	}
	if orch.RecordFeedback(ctx, session, "abc", chat.FeedbackNegative) {
		t.Error("second rating should be ignored")
	}

	turns := session.Transcript().Turns()
	if turns[3].Feedback != chat.FeedbackPositive {
		t.Errorf("feedback = %q, want positive", turns[3].Feedback)
	}

	events := audit.Events()
	if len(events) != 1 || events[0].Name() != telemetry.EventFeedback {
		t.Fatalf("events = %v", events)
	}
	dims := events[0].Dimensions()
	if dims["completionId"] != "abc" || dims["feedback"] != "positive" {
		t.Errorf("dimensions = %v", dims)
	}
	if audit.Flushes() != 1 {
		t.Errorf("flushes = %d, want 1", audit.Flushes())
	}
}

func TestRecordFeedback_UnknownIDIsIgnored(t *testing.T) {
	var audit telemetry.Recorder
	orch := chat.NewOrchestrator(&scriptedClient{}, chat.WithAuditSink(&audit))
	session := newRatedSession()
	before := session.Transcript().Turns()

	if orch.RecordFeedback(context.Background(), session, "nonexistent", chat.FeedbackNegative) {
		t.Error("unknown id should not be recorded")
	}

	after := session.Transcript().Turns()
	for i := range before {
		if before[i].Feedback != after[i].Feedback {
			t.Errorf("turn %d changed", i)
		}
	}
	if len(audit.Events()) != 0 {
		t.Error("no event expected for unknown id")
	}
}

func TestRecordFeedback_FirstMatchOnly(t *testing.T) {
	session := chat.NewSession(chat.WithTranscript(chat.NewTranscript(
		chat.NewUserTurn("a"),
		chat.NewAssistantTurn("one", "dup"),
		chat.NewUserTurn("b"),
		chat.NewAssistantTurn("two", "dup"),
	)))
	orch := chat.NewOrchestrator(&scriptedClient{})

	if !orch.RecordFeedback(context.Background(), session, "dup", chat.FeedbackNegative) {
		t.Fatal("expected rating to be recorded")
	}
	turns := session.Transcript().Turns()
	if turns[1].Feedback != chat.FeedbackNegative || turns[3].Feedback != chat.FeedbackNone {
		t.Errorf("feedback = %q / %q", turns[1].Feedback, turns[3].Feedback)
	}
}

func TestRecordFeedback_InvalidValue(t *testing.T) {
	orch := chat.NewOrchestrator(&scriptedClient{})
	session := newRatedSession()

	if orch.RecordFeedback(context.Background(), session, "abc", chat.Feedback("meh")) {
		t.Error("invalid value should be ignored")
	}
	if orch.RecordFeedback(context.Background(), session, "", chat.FeedbackPositive) {
		t.Error("empty response id should be ignored")
	}
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		in      string
		want    chat.Feedback
		wantErr bool
	}{
		{"positive", chat.FeedbackPositive, false},
		{"good", chat.FeedbackPositive, false},
		{"negative", chat.FeedbackNegative, false},
		{"bad", chat.FeedbackNegative, false},
		{"", chat.FeedbackNone, true},
		{"meh", chat.FeedbackNone, true},
	}
	for _, tt := range tests {
		got, err := chat.ParseFeedback(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFeedback(%q) err = %v", tt.in, err)
		}
		if err != nil && !errors.Is(err, chat.ErrInvalidFeedback) {
			t.Errorf("ParseFeedback(%q) err = %v, want ErrInvalidFeedback", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFeedback(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
