// Copyright (c) Microsoft. All rights reserved.

// Package search is a minimal Azure Cognitive Search documents client: it
// runs full-text queries against one index and returns the raw documents.
package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

const (
	moduleName    = "toolcompare/search"
	moduleVersion = "v0.1.0"

	// DefaultAPIVersion is the data-plane api-version used for queries.
	DefaultAPIVersion = "2023-11-01"

	tokenScope = "https://search.azure.com/.default"
)

// Document is one search result as returned by the service, including
// the @search.* annotation fields.
type Document map[string]any

// ClientOptions configures a [Client].
type ClientOptions struct {
	azcore.ClientOptions

	// APIVersion overrides [DefaultAPIVersion].
	APIVersion string
}

// QueryOptions narrows a [Client.Search] call.
type QueryOptions struct {
	// Top limits the number of documents returned; zero leaves the
	// service default.
	Top int

	// Select lists the fields to return; empty returns every retrievable
	// field.
	Select []string
}

// Client queries a single search index.
type Client struct {
	endpoint   string
	index      string
	apiVersion string
	pl         runtime.Pipeline
}

// EndpointForService returns the endpoint of a search service by name.
func EndpointForService(service string) string {
	return "https://" + service + ".search.windows.net"
}

// NewClientWithKey creates a Client that authenticates with an admin or
// query key sent in the api-key header.
func NewClientWithKey(endpoint, index string, cred *azcore.KeyCredential, opts *ClientOptions) (*Client, error) {
	if cred == nil {
		return nil, fmt.Errorf("search: key credential is required")
	}
	return newClient(endpoint, index, runtime.NewKeyCredentialPolicy(cred, "api-key", nil), opts)
}

// NewClient creates a Client that authenticates with Azure AD tokens.
func NewClient(endpoint, index string, cred azcore.TokenCredential, opts *ClientOptions) (*Client, error) {
	if cred == nil {
		return nil, fmt.Errorf("search: token credential is required")
	}
	return newClient(endpoint, index, runtime.NewBearerTokenPolicy(cred, []string{tokenScope}, nil), opts)
}

func newClient(endpoint, index string, auth policy.Policy, opts *ClientOptions) (*Client, error) {
	if endpoint == "" || index == "" {
		return nil, fmt.Errorf("search: endpoint and index are required")
	}
	if opts == nil {
		opts = &ClientOptions{}
	}
	apiVersion := opts.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{auth},
	}, &opts.ClientOptions)

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		index:      index,
		apiVersion: apiVersion,
		pl:         pl,
	}, nil
}

// Index returns the name of the index the client queries.
func (c *Client) Index() string { return c.index }

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top,omitempty"`
	Select string `json:"select,omitempty"`
}

type searchResponse struct {
	Value []Document `json:"value"`
}

// Search runs a simple full-text query and returns the matching documents
// in ranking order.
func (c *Client) Search(ctx context.Context, text string, opts *QueryOptions) ([]Document, error) {
	if opts == nil {
		opts = &QueryOptions{}
	}
	u := runtime.JoinPaths(c.endpoint, "indexes", url.PathEscape(c.index), "docs", "search")
	req, err := runtime.NewRequest(ctx, http.MethodPost, u)
	if err != nil {
		return nil, err
	}
	q := req.Raw().URL.Query()
	q.Set("api-version", c.apiVersion)
	req.Raw().URL.RawQuery = q.Encode()
	req.Raw().Header.Set("Accept", "application/json")

	body := searchRequest{
		Search: text,
		Top:    opts.Top,
		Select: strings.Join(opts.Select, ","),
	}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, err
	}

	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, err
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}

	var out searchResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}
