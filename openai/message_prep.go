// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"encoding/json"

	"github.com/jochenvw/toolcompare/chat"
)

// chatRequest is the Chat Completions request body in the functions /
// function_call form.
type chatRequest struct {
	Model        string         `json:"model,omitempty"`
	Messages     []chatMessage  `json:"messages"`
	Functions    []functionSpec `json:"functions,omitempty"`
	FunctionCall any            `json:"function_call,omitempty"`
	Temperature  *float64       `json:"temperature,omitempty"`
	TopP         *float64       `json:"top_p,omitempty"`
	MaxTokens    int            `json:"max_tokens,omitempty"`
	Stop         []string       `json:"stop,omitempty"`
}

type chatMessage struct {
	Role string `json:"role"`

	// Content is always serialized: a function-call request carries an
	// explicit null.
	Content *string `json:"content"`

	Name         string        `json:"name,omitempty"`
	FunctionCall *functionCall `json:"function_call,omitempty"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// buildRequest converts transcript turns into an API request.
func buildRequest(turns []chat.Turn, opts *chat.ChatOptions, model string) *chatRequest {
	req := &chatRequest{Model: model}
	if opts != nil {
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.MaxTokens = opts.MaxTokens
		req.Stop = opts.Stop
	}

	if opts != nil && len(opts.Tools) > 0 {
		for _, t := range opts.Tools {
			req.Functions = append(req.Functions, functionSpec{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			})
		}
		req.FunctionCall = convertToolChoice(opts.ToolChoice)
	}

	req.Messages = convertTurns(turns)
	return req
}

// convertTurns projects turns to role/content/name/function_call. Feedback,
// response ids and raw detail stay local.
func convertTurns(turns []chat.Turn) []chatMessage {
	result := make([]chatMessage, 0, len(turns))
	for _, turn := range turns {
		cm := chatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
		switch {
		case turn.Role == chat.RoleFunction:
			cm.Name = turn.ToolName
		case turn.ToolCall != nil:
			cm.FunctionCall = &functionCall{
				Name:      turn.ToolCall.Name,
				Arguments: turn.ToolCall.Arguments,
			}
		}
		result = append(result, cm)
	}
	return result
}

func convertToolChoice(tc chat.ToolChoice) any {
	switch tc {
	case "":
		return nil
	case chat.ToolChoiceAuto, chat.ToolChoiceNone:
		return string(tc)
	default:
		// Any other value names a function to force.
		return map[string]string{"name": string(tc)}
	}
}
