// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrOrchestrator is the base error for failures of the turn loop itself.
	ErrOrchestrator = errors.New("orchestrator error")

	// ErrRecursionLimitExceeded is returned when the model keeps requesting
	// function calls past the configured bound.
	ErrRecursionLimitExceeded = fmt.Errorf("%w: recursion limit exceeded", ErrOrchestrator)

	// ErrSessionBusy is returned when a session already has a submission in
	// flight.
	ErrSessionBusy = fmt.Errorf("%w: session busy", ErrOrchestrator)

	// ErrInvalidRegistry indicates a tool declaration failed validation.
	ErrInvalidRegistry = fmt.Errorf("%w: invalid tool registry", ErrOrchestrator)

	// ErrInvalidFeedback indicates an unrecognised feedback value.
	ErrInvalidFeedback = errors.New("invalid feedback value")

	// ErrTool is the base error for tool dispatch failures.
	ErrTool = errors.New("tool error")

	// ErrUnknownTool indicates the model requested a function that is not
	// in the registry.
	ErrUnknownTool = fmt.Errorf("%w: unknown tool", ErrTool)

	// ErrMalformedArguments indicates the model produced arguments that
	// could not be decoded.
	ErrMalformedArguments = fmt.Errorf("%w: malformed arguments", ErrTool)

	// ErrExternalCall is the base error for failures of any external
	// collaborator: the chat API, or a service a tool delegates to.
	ErrExternalCall = errors.New("external call failed")

	// ErrService is the base error for chat-completion service failures.
	ErrService = fmt.Errorf("%w: service", ErrExternalCall)

	// ErrContentFilter indicates the request was rejected by a content filter.
	ErrContentFilter = fmt.Errorf("%w: content filter", ErrService)

	// ErrInvalidRequest indicates the request was malformed or invalid.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)

	// ErrInvalidResponse indicates the service returned an unexpected response.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", ErrService)

	// ErrAuth indicates an authentication or authorization failure.
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)
)

// ServiceError provides rich context for chat-completion service failures.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ToolError provides context for a failed function call.
type ToolError struct {
	ToolName string
	Message  string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q: %s", e.ToolName, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// RecursionLimitError reports the depth at which a submission was aborted.
type RecursionLimitError struct {
	Depth int
	Limit int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("recursion depth %d exceeds limit %d", e.Depth, e.Limit)
}

func (e *RecursionLimitError) Unwrap() error { return ErrRecursionLimitExceeded }
