// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Role identifies the author of a [Turn].
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
	RoleSystem    Role = "system"
)

// Feedback is a user's rating of an assistant turn.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// ParseFeedback maps a UI value to a [Feedback]. The thumbs-up/down values
// "good" and "bad" are accepted as aliases.
func ParseFeedback(s string) (Feedback, error) {
	switch s {
	case "positive", "good":
		return FeedbackPositive, nil
	case "negative", "bad":
		return FeedbackNegative, nil
	default:
		return FeedbackNone, fmt.Errorf("%w: %q", ErrInvalidFeedback, s)
	}
}

// FunctionCall is a model request to invoke a registered tool.
type FunctionCall struct {
	Name string `json:"name"`

	// Arguments is the JSON-encoded argument object exactly as the model
	// produced it.
	Arguments string `json:"arguments"`
}

// Turn is one entry in a [Transcript]. Turns are immutable once appended,
// except for Feedback which is set at most once.
type Turn struct {
	Role Role `json:"role"`

	// Content is nil only for a turn that is purely a function-call request.
	Content *string `json:"content"`

	// ToolCall is set on assistant turns that request a function call.
	ToolCall *FunctionCall `json:"toolCall,omitempty"`

	// ToolName names the function that produced a function-result turn.
	ToolName string `json:"toolName,omitempty"`

	// ResponseID correlates a final assistant turn with the API response
	// that produced it.
	ResponseID string `json:"responseId,omitempty"`

	Feedback Feedback `json:"feedback,omitempty"`

	// RawDetail is diagnostic payload for the operator. It is never sent
	// back to the model.
	RawDetail json.RawMessage `json:"rawDetail,omitempty"`
}

// Text returns the turn's content, or "" when it has none.
func (t Turn) Text() string {
	if t.Content == nil {
		return ""
	}
	return *t.Content
}

// NewUserTurn creates a user-role [Turn].
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: &text}
}

// NewSystemTurn creates a system-role [Turn].
func NewSystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Content: &text}
}

// NewAssistantTurn creates a final assistant [Turn] tied to a response id.
func NewAssistantTurn(text, responseID string) Turn {
	return Turn{Role: RoleAssistant, Content: &text, ResponseID: responseID}
}

// clone returns a copy that shares no memory with t.
func (t Turn) clone() Turn {
	if t.Content != nil {
		c := *t.Content
		t.Content = &c
	}
	if t.ToolCall != nil {
		fc := *t.ToolCall
		t.ToolCall = &fc
	}
	t.RawDetail = slices.Clone(t.RawDetail)
	return t
}

// ConversationEntry is the role/content projection of a turn used in audit
// records.
type ConversationEntry struct {
	Role    Role    `json:"role"`
	Content *string `json:"content"`
}

// Conversation projects turns to role/content pairs.
func Conversation(turns []Turn) []ConversationEntry {
	out := make([]ConversationEntry, len(turns))
	for i, t := range turns {
		out[i] = ConversationEntry{Role: t.Role, Content: t.Content}
	}
	return out
}
