// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/jochenvw/toolcompare/chat"
)

// Client implements [chat.ChatClient] using the Chat Completions API.
// Use [New] to create one.
type Client struct {
	tp    transport
	model string
	path  string
}

// Verify interface compliance at compile time.
var _ chat.ChatClient = (*Client)(nil)

// New creates a [Client] with the given API key and options. The key is sent
// as a bearer token unless [WithAzureAPIKey] or [WithAzureCredential] is
// used.
//
//	client := openai.New("",
//	    openai.WithBaseURL("https://my-resource.openai.azure.com"),
//	    openai.WithAzureDeployment("gpt-35-turbo"),
//	    openai.WithAzureAPIKey(key),
//	)
func New(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{
		tp:    newPipelineTransport(apiKey, cfg),
		model: cfg.model,
		path:  completionsPath(cfg.azureDeployment),
	}
}

// newWithTransport creates a Client with a custom transport (for testing).
func newWithTransport(tp transport, model string) *Client {
	return &Client{tp: tp, model: model, path: completionsPath("")}
}

func completionsPath(deployment string) string {
	if deployment == "" {
		return "/chat/completions"
	}
	return "/openai/deployments/" + url.PathEscape(deployment) + "/chat/completions"
}

// Complete sends turns and returns the first choice of the response.
func (c *Client) Complete(ctx context.Context, turns []chat.Turn, opts *chat.ChatOptions) (*chat.Completion, error) {
	req := buildRequest(turns, opts, c.model)

	resp, err := c.tp.do(ctx, "POST", c.path, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", chat.ErrService, err)
	}

	raw, err := unmarshalChatResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", chat.ErrInvalidResponse, err)
	}

	result, err := parseChatResponse(raw)
	if err != nil {
		return nil, err
	}
	result.Raw = body
	return result, nil
}
