// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"encoding/json"
	"fmt"

	"github.com/jochenvw/toolcompare/chat"
)

// chatCompletionResponse is the Chat Completions response, including the
// Azure content-filter annotations.
type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`

	// Older api-versions name this prompt_annotations.
	PromptFilterResults []promptFilterResult `json:"prompt_filter_results,omitempty"`
	PromptAnnotations   []promptFilterResult `json:"prompt_annotations,omitempty"`
}

type promptFilterResult struct {
	PromptIndex          int             `json:"prompt_index"`
	ContentFilterResults json.RawMessage `json:"content_filter_results"`
}

type choice struct {
	Index                int             `json:"index"`
	Message              respMessage     `json:"message"`
	FinishReason         string          `json:"finish_reason"`
	ContentFilterResults json.RawMessage `json:"content_filter_results,omitempty"`
}

type respMessage struct {
	Role         string        `json:"role"`
	Content      *string       `json:"content"`
	FunctionCall *functionCall `json:"function_call,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// parseChatResponse converts the first choice of raw into a [chat.Completion].
func parseChatResponse(raw *chatCompletionResponse) (*chat.Completion, error) {
	if len(raw.Choices) == 0 {
		return nil, fmt.Errorf("%w: response %q has no choices", chat.ErrInvalidResponse, raw.ID)
	}
	c := raw.Choices[0]

	resp := &chat.Completion{
		ID:                    raw.ID,
		Model:                 raw.Model,
		Role:                  chat.Role(c.Message.Role),
		Content:               c.Message.Content,
		FinishReason:          c.FinishReason,
		PromptFilterResults:   promptFilters(raw),
		ResponseFilterResults: c.ContentFilterResults,
	}
	if resp.Role == "" {
		resp.Role = chat.RoleAssistant
	}
	if raw.Usage != nil {
		resp.Usage = chat.Usage{
			PromptTokens:     raw.Usage.PromptTokens,
			CompletionTokens: raw.Usage.CompletionTokens,
			TotalTokens:      raw.Usage.TotalTokens,
		}
	}
	if fc := c.Message.FunctionCall; fc != nil {
		resp.FunctionCall = &chat.FunctionCall{Name: fc.Name, Arguments: fc.Arguments}
	}
	return resp, nil
}

// promptFilters returns the content filter results of the first prompt.
func promptFilters(raw *chatCompletionResponse) json.RawMessage {
	results := raw.PromptFilterResults
	if len(results) == 0 {
		results = raw.PromptAnnotations
	}
	if len(results) == 0 {
		return nil
	}
	return results[0].ContentFilterResults
}

// unmarshalChatResponse parses the JSON response body.
func unmarshalChatResponse(data []byte) (*chatCompletionResponse, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
