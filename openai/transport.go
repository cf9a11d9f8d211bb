// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/jochenvw/toolcompare/chat"
)

const (
	moduleName    = "toolcompare/openai"
	moduleVersion = "v0.1.0"

	defaultBaseURL         = "https://api.openai.com/v1"
	cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
)

// transport sends one JSON request and returns the successful response.
// Tests inject a fake.
type transport interface {
	do(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// pipelineTransport sends requests through an azcore pipeline. Retries are
// disabled: a failed call is reported, never repeated.
type pipelineTransport struct {
	pl         runtime.Pipeline
	baseURL    string
	apiVersion string
}

func newPipelineTransport(apiKey string, cfg *clientConfig) *pipelineTransport {
	headers := make(map[string]string, len(cfg.headers)+2)
	if cfg.organization != "" {
		headers["OpenAI-Organization"] = cfg.organization
	}
	for k, v := range cfg.headers {
		headers[k] = v
	}

	var auth policy.Policy
	switch {
	case cfg.azureCredential != nil:
		auth = &tokenPolicy{cred: cfg.azureCredential}
	case headers["api-key"] != "":
	case apiKey != "":
		headers["Authorization"] = "Bearer " + apiKey
	}
	perRetry := []policy.Policy{headerPolicy(headers)}
	if auth != nil {
		perRetry = append(perRetry, auth)
	}

	opts := &policy.ClientOptions{Retry: policy.RetryOptions{MaxRetries: -1}}
	if cfg.httpClient != nil {
		opts.Transport = cfg.httpClient
	}

	t := &pipelineTransport{
		pl:      runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{PerRetry: perRetry}, opts),
		baseURL: strings.TrimRight(cfg.baseURL, "/"),
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if cfg.azureDeployment != "" {
		t.apiVersion = cfg.apiVersion
		if t.apiVersion == "" {
			t.apiVersion = DefaultAPIVersion
		}
	}
	return t
}

func (t *pipelineTransport) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	req, err := runtime.NewRequest(ctx, method, t.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", chat.ErrInvalidRequest, err)
	}
	if t.apiVersion != "" {
		q := req.Raw().URL.Query()
		q.Set("api-version", t.apiVersion)
		req.Raw().URL.RawQuery = q.Encode()
	}
	if body != nil {
		if err := runtime.MarshalAsJSON(req, body); err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", chat.ErrInvalidRequest, err)
		}
	}

	resp, err := t.pl.Do(req)
	if err != nil {
		var svcErr *chat.ServiceError
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: http request: %w", chat.ErrService, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}
	return resp, nil
}

// headerPolicy sets fixed headers on every request.
type headerPolicy map[string]string

func (h headerPolicy) Do(req *policy.Request) (*http.Response, error) {
	for k, v := range h {
		req.Raw().Header.Set(k, v)
	}
	return req.Next()
}

// tokenPolicy authenticates with an Azure AD token for Cognitive Services.
// A token failure is reported as an authentication error.
type tokenPolicy struct {
	cred azcore.TokenCredential
}

func (p *tokenPolicy) Do(req *policy.Request) (*http.Response, error) {
	ctx := req.Raw().Context()
	token, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{cognitiveServicesScope},
	})
	if err != nil {
		return nil, &chat.ServiceError{
			StatusCode: http.StatusUnauthorized,
			Message:    "get azure token: " + err.Error(),
			Err:        chat.ErrAuth,
		}
	}
	slog.DebugContext(ctx, "using Azure AD token authentication", "token_expires_on", token.ExpiresOn)
	req.Raw().Header.Set("Authorization", "Bearer "+token.Token)
	return req.Next()
}

// parseErrorResponse maps an error status and its OpenAI error body to a
// [chat.ServiceError].
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)

	svcErr := &chat.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    envelope.Error.Message,
		Code:       envelope.Error.Code,
		Err:        chat.ErrService,
	}
	if svcErr.Message == "" {
		svcErr.Message = string(body)
	}

	switch {
	case svcErr.Code == "content_filter":
		svcErr.Err = chat.ErrContentFilter
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		svcErr.Err = chat.ErrAuth
	case resp.StatusCode == http.StatusBadRequest:
		svcErr.Err = chat.ErrInvalidRequest
	}
	return svcErr
}
