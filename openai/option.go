// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// DefaultAPIVersion is the Azure OpenAI api-version that still accepts the
// legacy functions/function_call request shape.
const DefaultAPIVersion = "2023-07-01-preview"

// clientConfig holds resolved configuration for the OpenAI client.
type clientConfig struct {
	baseURL         string
	organization    string
	httpClient      *http.Client
	headers         map[string]string
	model           string
	azureCredential azcore.TokenCredential
	azureDeployment string
	apiVersion      string
}

// Option configures an OpenAI [Client].
type Option func(*clientConfig)

// WithBaseURL overrides the API base URL (e.g., an Azure OpenAI resource
// endpoint or a proxy).
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithOrganization sets the OpenAI organization header.
func WithOrganization(org string) Option {
	return func(c *clientConfig) { c.organization = org }
}

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) {
		if c.headers == nil {
			c.headers = map[string]string{}
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithModel sets the model name sent in the request body.
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// WithAzureCredential enables Azure AD token authentication using the provided credential.
// When set, the client will obtain and refresh tokens automatically instead of using API keys.
func WithAzureCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.azureCredential = cred }
}

// WithAzureDeployment routes requests to the Azure OpenAI deployment path
// /openai/deployments/{name}/chat/completions with an api-version query.
func WithAzureDeployment(name string) Option {
	return func(c *clientConfig) { c.azureDeployment = name }
}

// WithAPIVersion overrides [DefaultAPIVersion] for Azure deployments.
func WithAPIVersion(v string) Option {
	return func(c *clientConfig) { c.apiVersion = v }
}

// WithAzureAPIKey authenticates with the Azure "api-key" header instead of
// a bearer token.
func WithAzureAPIKey(key string) Option {
	return WithHeaders(map[string]string{"api-key": key})
}
