// Copyright (c) Microsoft. All rights reserved.

package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/jochenvw/toolcompare/chat"
	"github.com/jochenvw/toolcompare/search"
)

// HotelSearchToolName is the function name advertised for hotel search.
const HotelSearchToolName = "get_hotel_information"

// DefaultHotelCount is the number of hotels returned when the model gives
// no count.
const DefaultHotelCount = 3

// hotelFields are the index fields requested from the search service.
var hotelFields = []string{"HotelName", "Description", "Address", "Rating", "Rooms"}

// roomFields are kept on each entry of a hotel's Rooms.
var roomFields = []string{"Description", "BaseRate", "SleepsCount"}

// HotelSearchArgs are the arguments of get_hotel_information. Count is a
// string because the model sends it that way.
type HotelSearchArgs struct {
	Query string `json:"query" jsonschema:"description=a query to use to find information about hotels,required"`
	Count string `json:"count,omitempty" jsonschema:"description=the number of results to find"`
}

// Searcher runs a full-text query against the hotels index.
type Searcher interface {
	Search(ctx context.Context, text string, opts *search.QueryOptions) ([]search.Document, error)
}

// HotelSearchTool declares get_hotel_information backed by s.
func HotelSearchTool(s Searcher) *chat.FunctionTool {
	return chat.NewTypedTool(HotelSearchToolName,
		"Perform a search for current information about hotels.",
		func(ctx context.Context, args HotelSearchArgs) (any, error) {
			count, err := parseCount(args.Count)
			if err != nil {
				return nil, err
			}
			docs, err := s.Search(ctx, args.Query, &search.QueryOptions{
				Top:    count,
				Select: hotelFields,
			})
			if err != nil {
				return nil, err
			}
			return trimHotels(docs), nil
		},
	)
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultHotelCount, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, &chat.ToolError{
			ToolName: HotelSearchToolName,
			Message:  "count must be a positive integer, got " + strconv.Quote(s),
			Err:      chat.ErrMalformedArguments,
		}
	}
	return n, nil
}

// trimHotels drops the search annotations and reduces each room to the
// fields the model needs.
func trimHotels(docs []search.Document) []search.Document {
	out := make([]search.Document, 0, len(docs))
	for _, doc := range docs {
		hotel := make(search.Document, len(doc))
		for k, v := range doc {
			if k == "@search.score" || k == "@search.highlights" {
				continue
			}
			hotel[k] = v
		}
		if rooms, ok := doc["Rooms"].([]any); ok {
			hotel["Rooms"] = trimRooms(rooms)
		}
		out = append(out, hotel)
	}
	return out
}

func trimRooms(rooms []any) []map[string]any {
	out := make([]map[string]any, 0, len(rooms))
	for _, r := range rooms {
		room, ok := r.(map[string]any)
		if !ok {
			continue
		}
		kept := make(map[string]any, len(roomFields))
		for _, f := range roomFields {
			if v, ok := room[f]; ok {
				kept[f] = v
			}
		}
		out = append(out, kept)
	}
	return out
}
