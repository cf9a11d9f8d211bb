// Copyright (c) Microsoft. All rights reserved.

// Package openai provides a [chat.ChatClient] implementation for the
// OpenAI and Azure OpenAI Chat Completions API, using the functions /
// function_call form of function calling.
//
// Create a client and pass it to [chat.NewOrchestrator]:
//
//	client := openai.New("",
//	    openai.WithBaseURL(os.Getenv("CHAT_API_ENDPOINT")),
//	    openai.WithAzureDeployment(os.Getenv("CHAT_MODEL")),
//	    openai.WithAzureAPIKey(os.Getenv("CHAT_API_KEY")),
//	)
//
//	orch := chat.NewOrchestrator(client)
//
// # Configuration
//
// Use functional options to configure the client:
//
//   - [WithModel]: set the model sent in the request body
//   - [WithBaseURL]: override the API endpoint (e.g., Azure OpenAI)
//   - [WithAzureDeployment]: use the Azure deployment path
//   - [WithAPIVersion]: override the Azure api-version
//   - [WithAzureAPIKey]: authenticate with the api-key header
//   - [WithAzureCredential]: authenticate with Azure AD tokens
//   - [WithOrganization]: set the OpenAI organization header
//   - [WithHTTPClient]: provide a custom http.Client
//   - [WithHeaders]: add custom headers to every request
//
// Requests go through an azcore pipeline with retries disabled; a failed
// call surfaces as a [chat.ServiceError] wrapping one of the chat sentinels.
//
// # Testing
//
// The client uses an unexported transport interface internally.
// For testing, provide a mock http.Client via [WithHTTPClient]
// with a custom RoundTripper.
package openai
