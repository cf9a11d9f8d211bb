// Copyright (c) Microsoft. All rights reserved.

// Package config loads the playground configuration from .env files and the
// environment.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/jochenvw/toolcompare/search"
	"github.com/jochenvw/toolcompare/tools"
)

// API types accepted in CHAT_API_TYPE and EMBEDDING_API_TYPE.
const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"
)

// Playground variants accepted in PLAYGROUND_VARIANT.
const (
	VariantFunctions = string(tools.VariantFunctions)
	VariantChat      = string(tools.VariantChat)
	VariantAgent     = string(tools.VariantAgent)
	VariantSemantic  = string(tools.VariantSemantic)
)

// Config is the resolved playground configuration. Field tags name the
// environment variable each value is read from.
type Config struct {
	Chat      ChatConfig      `env:",squash"`
	Embedding EmbeddingConfig `env:",squash"`
	Search    SearchConfig    `env:",squash"`

	HeroesAPIEndpoint string `env:"HEROES_API_ENDPOINT"`

	Variant      string `env:"PLAYGROUND_VARIANT"`
	MaxRecursion int    `env:"MAX_RECURSION"`

	ListenAddr   string `env:"LISTEN_ADDR"`
	ServerAPIKey string `env:"SERVER_API_KEY"`

	// AuditDB is a SQLite file for audit events; empty logs them only.
	AuditDB string `env:"AUDIT_DB"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"`
	LogLevel    string        `env:"LOG_LEVEL"`
}

// ChatConfig addresses the chat-completion API.
type ChatConfig struct {
	Endpoint   string `env:"CHAT_API_ENDPOINT"`
	Type       string `env:"CHAT_API_TYPE"`
	Key        string `env:"CHAT_API_KEY"`
	Model      string `env:"CHAT_MODEL"`
	APIVersion string `env:"CHAT_API_VERSION"`
}

// EmbeddingConfig addresses the embedding API. It is carried for
// deployments that share one .env with the embedding tooling.
type EmbeddingConfig struct {
	Endpoint string `env:"EMBEDDING_API_ENDPOINT"`
	Type     string `env:"EMBEDDING_API_TYPE"`
	Key      string `env:"EMBEDDING_API_KEY"`
	Model    string `env:"EMBEDDING_MODEL"`
}

// SearchConfig addresses the hotels search index.
type SearchConfig struct {
	Service  string `env:"SEARCH_SERVICE"`
	Endpoint string `env:"SEARCH_API_ENDPOINT"`
	Index    string `env:"SEARCH_INDEX"`
	Key      string `env:"SEARCH_API_KEY"`
}

// DefaultConfig returns the configuration used for unset keys.
func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			Type:       APITypeAzure,
			APIVersion: "2023-07-01-preview",
		},
		Embedding: EmbeddingConfig{
			Type: APITypeAzure,
		},
		Search: SearchConfig{
			Index: "hotels-sample-index",
		},
		Variant:      VariantFunctions,
		MaxRecursion: 5,
		ListenAddr:   ":8080",
		HTTPTimeout:  30 * time.Second,
		LogLevel:     "info",
	}
}

// SearchEndpoint returns the configured search endpoint, deriving it from
// the service name when no endpoint is set.
func (c *Config) SearchEndpoint() string {
	if c.Search.Endpoint != "" {
		return c.Search.Endpoint
	}
	if c.Search.Service != "" {
		return search.EndpointForService(c.Search.Service)
	}
	return ""
}

// PlaygroundVariant returns Variant parsed; Validate reports the error.
func (c *Config) PlaygroundVariant() (tools.Variant, error) {
	return tools.ParseVariant(c.Variant)
}

// IsAzure reports whether the chat API is Azure OpenAI.
func (c *Config) IsAzure() bool {
	return strings.EqualFold(c.Chat.Type, APITypeAzure)
}

// SlogLevel returns LogLevel as a slog level; unknown values mean Info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
