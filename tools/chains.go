// Copyright (c) Microsoft. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/jochenvw/toolcompare/chat"
	"github.com/jochenvw/toolcompare/search"
)

// Names of the agent variant's tools. Each wraps a small prompt chain
// rather than returning raw data.
const (
	ChatToolName   = "chat"
	SearchToolName = "search"
	APIToolName    = "api"
)

// DefaultRetrievalCount is how many hotel descriptions the search tool
// hands the model as context.
const DefaultRetrievalCount = 5

// ChainArgs is the single free-text input of a chain tool.
type ChainArgs struct {
	Input string `json:"input" jsonschema:"description=the question to answer,required"`
}

// HeroStatsAPIDocs describes the statistics API to the model that builds
// request URLs for the api tool.
const HeroStatsAPIDocs = `BASE URL: /api

API Documentation
The API endpoint /api/hero-stats returns win rate statistics for every Heroes of the Storm hero over a date range.

Query parameters:
  startDate  string  required  First day of the range, formatted YYYY-MM-DD.
  endDate    string  required  Last day of the range, formatted YYYY-MM-DD.

The response is a JSON array with one object per hero.`

const chatChainPrompt = "Answer this question: %s"

const retrievalSystemPrompt = `Use the following pieces of context to answer the users question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

const apiURLPrompt = `You are given the below API Documentation:
%s
Using this documentation, generate the full API url to call for answering the user question.
You should build the API url in order to get a response that is as short as possible, while still getting the necessary information to answer the question. Pay attention to deliberately exclude any unnecessary pieces of data in the API call.

Question:%s
API url:`

const apiAnswerPrompt = `%s %s

Here is the response from the API:

%s

Summarize this response to answer the original question.

Summary:`

// ChatTool answers general knowledge questions with a single completion.
func ChatTool(client chat.ChatClient) *chat.FunctionTool {
	return chat.NewTypedTool(ChatToolName,
		"uses chat to answer general knowledge questions",
		func(ctx context.Context, args ChainArgs) (any, error) {
			return ask(ctx, client, chat.NewUserTurn(fmt.Sprintf(chatChainPrompt, args.Input)))
		},
	)
}

// SearchTool answers hotel questions from the descriptions of the best
// matching hotels.
func SearchTool(client chat.ChatClient, s Searcher) *chat.FunctionTool {
	return chat.NewTypedTool(SearchToolName,
		"a index that can be searched to find information about hotels, and only hotels, not general knowledge questions",
		func(ctx context.Context, args ChainArgs) (any, error) {
			docs, err := s.Search(ctx, args.Input, &search.QueryOptions{
				Top:    DefaultRetrievalCount,
				Select: []string{"Description"},
			})
			if err != nil {
				return nil, err
			}
			var sb strings.Builder
			for i, doc := range docs {
				if i > 0 {
					sb.WriteString("\n\n")
				}
				if d, ok := doc["Description"].(string); ok {
					sb.WriteString(d)
				}
			}
			return ask(ctx, client,
				chat.NewSystemTurn(fmt.Sprintf(retrievalSystemPrompt, sb.String())),
				chat.NewUserTurn(args.Input),
			)
		},
	)
}

// APITool answers win-rate questions: the model writes the statistics
// request from [HeroStatsAPIDocs], the tool runs it against src, and the
// model summarizes the result.
func APITool(client chat.ChatClient, src StatsSource) *chat.FunctionTool {
	return chat.NewTypedTool(APIToolName,
		"an API that can answer questions about win rates for Heroes of the Storm",
		func(ctx context.Context, args ChainArgs) (any, error) {
			prompt := fmt.Sprintf(apiURLPrompt, HeroStatsAPIDocs, args.Input)
			rawURL, err := ask(ctx, client, chat.NewUserTurn(prompt))
			if err != nil {
				return nil, err
			}
			start, end, err := parseStatsURL(rawURL)
			if err != nil {
				return nil, err
			}
			stats, err := src.Stats(ctx, start, end)
			if err != nil {
				return nil, err
			}
			return ask(ctx, client, chat.NewUserTurn(fmt.Sprintf(apiAnswerPrompt, prompt, strings.TrimSpace(rawURL), stats)))
		},
	)
}

// parseStatsURL extracts the date range from a model-written statistics
// URL. Only the hero-stats path is accepted; the host is ignored because
// the request always goes to the configured endpoint.
func parseStatsURL(raw string) (start, end string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || path.Base(u.Path) != "hero-stats" {
		return "", "", &chat.ToolError{
			ToolName: APIToolName,
			Message:  fmt.Sprintf("model produced an unusable API url %q", raw),
			Err:      chat.ErrMalformedArguments,
		}
	}
	q := u.Query()
	start, end = q.Get("startDate"), q.Get("endDate")
	if start == "" || end == "" {
		return "", "", &chat.ToolError{
			ToolName: APIToolName,
			Message:  fmt.Sprintf("API url %q is missing startDate or endDate", raw),
			Err:      chat.ErrMalformedArguments,
		}
	}
	return start, end, nil
}

// ask runs one completion and returns its text.
func ask(ctx context.Context, client chat.ChatClient, turns ...chat.Turn) (string, error) {
	resp, err := client.Complete(ctx, turns, nil)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty completion", chat.ErrInvalidResponse)
	}
	return resp.Text(), nil
}
