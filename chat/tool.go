// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"context"
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// Tool is a local function the model may ask to invoke.
type Tool interface {
	// Name returns the function name as advertised to the model.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// Parameters returns the JSON Schema advertised for the function input.
	Parameters() json.RawMessage

	// Invoke calls the function with the decoded keyword arguments.
	Invoke(ctx context.Context, args map[string]any) (any, error)

	// DeclarationOnly reports whether the tool has no callable behind it.
	// A [Registry] refuses such tools.
	DeclarationOnly() bool
}

// FunctionTool is a concrete [Tool] backed by a Go function.
type FunctionTool struct {
	name        string
	description string
	parameters  json.RawMessage
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// ToolOption configures a [FunctionTool].
type ToolOption func(*FunctionTool)

// WithParameters replaces the advertised JSON Schema.
func WithParameters(schema json.RawMessage) ToolOption {
	return func(t *FunctionTool) { t.parameters = schema }
}

// NewTool creates a [FunctionTool] from a raw JSON Schema and handler.
// A nil fn yields a declaration-only tool.
func NewTool(name, description string, parameters json.RawMessage, fn func(ctx context.Context, args map[string]any) (any, error), opts ...ToolOption) *FunctionTool {
	t := &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTypedTool creates a [FunctionTool] whose schema is generated from Args
// and whose keyword arguments are decoded into Args before fn runs.
//
// Args should be a struct with json tags; the `jsonschema` tag adds
// description, required, enum and default metadata:
//
//	type SearchArgs struct {
//	    Query string `json:"query" jsonschema:"description=What to look for,required"`
//	    Count string `json:"count" jsonschema:"description=How many results"`
//	}
//
// Decoding is weakly typed, so a model sending 3 for a string field (or "3"
// for an int field) still decodes.
func NewTypedTool[Args any](name, description string, fn func(ctx context.Context, args Args) (any, error), opts ...ToolOption) *FunctionTool {
	wrapped := func(ctx context.Context, raw map[string]any) (any, error) {
		var args Args
		if err := decodeArgs(raw, &args); err != nil {
			return nil, &ToolError{
				ToolName: name,
				Message:  "invalid arguments: " + err.Error(),
				Err:      ErrMalformedArguments,
			}
		}
		return fn(ctx, args)
	}
	return NewTool(name, description, GenerateSchema[Args](), wrapped, opts...)
}

func decodeArgs(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (t *FunctionTool) Name() string               { return t.name }
func (t *FunctionTool) Description() string         { return t.description }
func (t *FunctionTool) Parameters() json.RawMessage { return t.parameters }
func (t *FunctionTool) DeclarationOnly() bool       { return t.fn == nil }

// Invoke calls the tool's backing function.
func (t *FunctionTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if t.fn == nil {
		return nil, &ToolError{
			ToolName: t.name,
			Message:  "tool is declaration-only and cannot be invoked",
			Err:      ErrTool,
		}
	}
	return t.fn(ctx, args)
}
