// Copyright (c) Microsoft. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/jochenvw/toolcompare/chat"
)

// HeroStatsToolName is the function name advertised for hero statistics.
const HeroStatsToolName = "get_heroes_winrate_stats"

// HeroStatsArgs are the arguments of get_heroes_winrate_stats.
type HeroStatsArgs struct {
	StartDate string `json:"start_date" jsonschema:"description=first day of the date range as YYYY-MM-DD,required"`
	EndDate   string `json:"end_date" jsonschema:"description=last day of the date range as YYYY-MM-DD,required"`
}

// HeroStatsClient reads hero win-rate statistics from the statistics API.
type HeroStatsClient struct {
	endpoint string
	pl       runtime.Pipeline
}

// NewHeroStatsClient creates a client for the statistics API at endpoint.
// A nil opts uses the azcore defaults.
func NewHeroStatsClient(endpoint string, opts *azcore.ClientOptions) (*HeroStatsClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("hero stats: endpoint is required")
	}
	return &HeroStatsClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		pl:       runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{}, opts),
	}, nil
}

// Stats returns the statistics for every hero over the date range, exactly
// as the API encoded them.
func (c *HeroStatsClient) Stats(ctx context.Context, startDate, endDate string) (json.RawMessage, error) {
	req, err := runtime.NewRequest(ctx, http.MethodGet, runtime.JoinPaths(c.endpoint, "hero-stats"))
	if err != nil {
		return nil, err
	}
	q := req.Raw().URL.Query()
	q.Set("startDate", startDate)
	q.Set("endDate", endDate)
	req.Raw().URL.RawQuery = q.Encode()
	req.Raw().Header.Set("Accept", "application/json")

	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, err
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}

	body, err := runtime.Payload(resp)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("hero stats: response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

// StatsSource is what [HeroStatsTool] delegates to.
type StatsSource interface {
	Stats(ctx context.Context, startDate, endDate string) (json.RawMessage, error)
}

// HeroStatsTool declares get_heroes_winrate_stats backed by src.
func HeroStatsTool(src StatsSource) *chat.FunctionTool {
	return chat.NewTypedTool(HeroStatsToolName,
		"Pass in a date range and get statistics for all heroes over that date range.",
		func(ctx context.Context, args HeroStatsArgs) (any, error) {
			if args.StartDate == "" || args.EndDate == "" {
				return nil, &chat.ToolError{
					ToolName: HeroStatsToolName,
					Message:  "start_date and end_date are required",
					Err:      chat.ErrMalformedArguments,
				}
			}
			return src.Stats(ctx, args.StartDate, args.EndDate)
		},
	)
}
