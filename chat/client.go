// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
)

// ChatClient is the interface for a chat-completion backend. Provider
// packages (e.g. openai) implement it.
type ChatClient interface {
	// Complete sends the transcript snapshot to the model and returns its
	// single choice. Implementations must not retry.
	Complete(ctx context.Context, turns []Turn, opts *ChatOptions) (*Completion, error)
}

// ToolChoice controls how the model selects functions.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ChatOptions configures a single completion request.
type ChatOptions struct {
	// Tools are advertised to the model. Empty means no functions are sent.
	Tools      []Tool
	ToolChoice ToolChoice

	// Sampling settings; zero values leave the service defaults.
	Temperature *float64
	TopP        *float64
	MaxTokens   int
	Stop        []string
}

// Usage holds token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the model's answer to one request.
type Completion struct {
	ID           string
	Model        string
	Role         Role
	Content      *string
	FunctionCall *FunctionCall
	FinishReason string
	Usage        Usage

	// Content-filter annotations; nil when the API version omits them.
	PromptFilterResults   json.RawMessage
	ResponseFilterResults json.RawMessage

	// Raw is the full response body.
	Raw json.RawMessage
}

// Text returns the completion content, or "" when it has none.
func (c *Completion) Text() string {
	if c.Content == nil {
		return ""
	}
	return *c.Content
}
