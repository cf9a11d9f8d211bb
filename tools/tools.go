// Copyright (c) Microsoft. All rights reserved.

// Package tools declares the functions the playground exposes to the model
// and builds the registry the orchestrator dispatches against.
package tools

import (
	"fmt"

	"github.com/jochenvw/toolcompare/chat"
)

const (
	moduleName    = "toolcompare/tools"
	moduleVersion = "v0.1.0"
)

// Variant selects how a playground answers: which assistant runs and
// which tools it gets.
type Variant string

const (
	// VariantFunctions calls the chat API directly and exposes hero
	// statistics and hotel search as functions.
	VariantFunctions Variant = "functions"

	// VariantChat calls the chat API directly without tools.
	VariantChat Variant = "chat"

	// VariantAgent runs a tool-using agent over the chat, search and api
	// chain tools.
	VariantAgent Variant = "agent"

	// VariantSemantic runs each prompt as a one-shot semantic function.
	VariantSemantic Variant = "semantic"
)

// Variants lists every supported variant.
var Variants = []Variant{VariantFunctions, VariantChat, VariantAgent, VariantSemantic}

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown playground variant %q (want one of %v)", s, Variants)
}

// UsesServices reports whether the variant's tools call the statistics API
// and the search index.
func (v Variant) UsesServices() bool {
	return v == VariantFunctions || v == VariantAgent
}

// Dependencies are the collaborators tools delegate to. Only the fields a
// variant uses need to be set.
type Dependencies struct {
	// Client backs the agent variant's chain tools.
	Client chat.ChatClient
	Stats  StatsSource
	Hotels Searcher
}

// NewRegistry builds the tool registry for the functions playground.
func NewRegistry(stats StatsSource, hotels Searcher) (*chat.Registry, error) {
	return chat.NewRegistry(
		HeroStatsTool(stats),
		HotelSearchTool(hotels),
	)
}

// NewAgentRegistry builds the agent's chain tools.
func NewAgentRegistry(client chat.ChatClient, stats StatsSource, hotels Searcher) (*chat.Registry, error) {
	return chat.NewRegistry(
		ChatTool(client),
		SearchTool(client, hotels),
		APITool(client, stats),
	)
}

// RegistryFor builds the registry for variant. The chat and semantic
// variants have no tools.
func RegistryFor(variant Variant, deps Dependencies) (*chat.Registry, error) {
	if variant.UsesServices() && (deps.Stats == nil || deps.Hotels == nil) {
		return nil, fmt.Errorf("%w: %s variant needs the statistics and search clients", chat.ErrInvalidRegistry, variant)
	}
	switch variant {
	case VariantChat, VariantSemantic:
		return chat.NewRegistry()
	case VariantFunctions:
		return NewRegistry(deps.Stats, deps.Hotels)
	case VariantAgent:
		if deps.Client == nil {
			return nil, fmt.Errorf("%w: agent variant needs a chat client", chat.ErrInvalidRegistry)
		}
		return NewAgentRegistry(deps.Client, deps.Stats, deps.Hotels)
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", chat.ErrInvalidRegistry, variant)
	}
}
