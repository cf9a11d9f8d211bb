// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jochenvw/toolcompare/chat"
)

// recordingTransport captures the request body and replies with resp.
type recordingTransport struct {
	path string
	body []byte
	resp string
}

func (r *recordingTransport) do(_ context.Context, _, path string, body any) (*http.Response, error) {
	r.path = path
	r.body, _ = json.Marshal(body)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader([]byte(r.resp))),
	}, nil
}

func TestConvertTurns_FunctionRoundTrip(t *testing.T) {
	result := `[{"HotelName":"Sea View"}]`
	turns := []chat.Turn{
		chat.NewSystemTurn("You are helpful."),
		chat.NewUserTurn("beach hotel"),
		{
			Role:       chat.RoleAssistant,
			ToolCall:   &chat.FunctionCall{Name: "get_hotel_information", Arguments: `{"query":"beach"}`},
			RawDetail:  json.RawMessage(`{"debug":true}`),
			ResponseID: "",
		},
		{Role: chat.RoleFunction, ToolName: "get_hotel_information", Content: &result},
		{Role: chat.RoleAssistant, Content: ptr("Sea View."), ResponseID: "r1", Feedback: chat.FeedbackPositive},
	}

	b, err := json.Marshal(convertTurns(turns))
	if err != nil {
		t.Fatal(err)
	}
	want := `[` +
		`{"role":"system","content":"You are helpful."},` +
		`{"role":"user","content":"beach hotel"},` +
		`{"role":"assistant","content":null,"function_call":{"name":"get_hotel_information","arguments":"{\"query\":\"beach\"}"}},` +
		`{"role":"function","content":"[{\"HotelName\":\"Sea View\"}]","name":"get_hotel_information"},` +
		`{"role":"assistant","content":"Sea View."}` +
		`]`
	if string(b) != want {
		t.Errorf("messages =\n%s\nwant\n%s", b, want)
	}
}

func TestConvertToolChoice(t *testing.T) {
	if got := convertToolChoice(""); got != nil {
		t.Errorf("empty = %v", got)
	}
	if got := convertToolChoice(chat.ToolChoiceNone); got != "none" {
		t.Errorf("none = %v", got)
	}
	forced, ok := convertToolChoice("get_heroes_winrate_stats").(map[string]string)
	if !ok || forced["name"] != "get_heroes_winrate_stats" {
		t.Errorf("forced = %v", forced)
	}
}

func TestParseChatResponse_PromptAnnotations(t *testing.T) {
	raw, err := unmarshalChatResponse([]byte(`{
		"id": "a",
		"prompt_annotations": [{"prompt_index": 0, "content_filter_results": {"sexual": {"filtered": false}}}],
		"choices": [{"message": {"content": "hi"}}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := parseChatResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.PromptFilterResults) != `{"sexual": {"filtered": false}}` {
		t.Errorf("PromptFilterResults = %s", resp.PromptFilterResults)
	}
	if resp.Role != chat.RoleAssistant {
		t.Errorf("Role = %q, want assistant default", resp.Role)
	}
	if resp.ResponseFilterResults != nil {
		t.Errorf("ResponseFilterResults = %s, want nil", resp.ResponseFilterResults)
	}
}

func TestClient_UsesTransport(t *testing.T) {
	tp := &recordingTransport{resp: `{"id":"z","choices":[{"message":{"role":"assistant","content":"ok"}}]}`}
	c := newWithTransport(tp, "gpt-4")

	resp, err := c.Complete(context.Background(), []chat.Turn{chat.NewUserTurn("hi")}, &chat.ChatOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text() != "ok" || tp.path != "/chat/completions" {
		t.Errorf("resp = %+v, path = %q", resp, tp.path)
	}
	if string(tp.body) != `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}` {
		t.Errorf("body = %s", tp.body)
	}
}

func ptr[T any](v T) *T { return &v }

func TestBuildRequest_SamplingSettings(t *testing.T) {
	temp := 0.0
	req := buildRequest([]chat.Turn{chat.NewUserTurn("hi")}, &chat.ChatOptions{
		Temperature: &temp,
		MaxTokens:   256,
		Stop:        []string{"###"},
	}, "")

	got, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"messages":[{"role":"user","content":"hi"}],"temperature":0,"max_tokens":256,"stop":["###"]}`
	if string(got) != want {
		t.Errorf("request = %s\nwant      %s", got, want)
	}
}
