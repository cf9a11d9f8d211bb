// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Registry maps function names to tools. It is built once by [NewRegistry]
// and read-only afterwards, so it is safe for concurrent use.
//
// A nil *Registry is a valid empty registry.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry validates the declarations and builds a Registry. Every
// tool needs a unique non-empty name, a callable, and an object schema.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("%w: tool %d is nil", ErrInvalidRegistry, i)
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: tool %d has no name", ErrInvalidRegistry, i)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("%w: tool %q declared twice", ErrInvalidRegistry, name)
		}
		if t.DeclarationOnly() {
			return nil, fmt.Errorf("%w: tool %q has no callable", ErrInvalidRegistry, name)
		}
		if err := checkParameters(t.Parameters()); err != nil {
			return nil, fmt.Errorf("%w: tool %q: %v", ErrInvalidRegistry, name, err)
		}
		r.byName[name] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

func checkParameters(raw json.RawMessage) error {
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return fmt.Errorf("parameters are not a JSON object: %w", err)
	}
	if typ, _ := schema["type"].(string); typ != "object" {
		return fmt.Errorf("parameters type is %v, want object", schema["type"])
	}
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the tools in declaration order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}
	return slices.Clone(r.tools)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}
