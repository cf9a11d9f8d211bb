// Copyright (c) Microsoft. All rights reserved.

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Chat.Type) {
	case APITypeAzure:
		if c.Chat.Endpoint == "" {
			errs = append(errs, errors.New("CHAT_API_ENDPOINT is required for azure"))
		}
		if c.Chat.Model == "" {
			errs = append(errs, errors.New("CHAT_MODEL (deployment name) is required for azure"))
		}
	case APITypeOpenAI:
		if c.Chat.Key == "" {
			errs = append(errs, errors.New("CHAT_API_KEY is required for openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("CHAT_API_TYPE must be %q or %q, got %q", APITypeAzure, APITypeOpenAI, c.Chat.Type))
	}

	variant, err := c.PlaygroundVariant()
	if err != nil {
		errs = append(errs, fmt.Errorf("PLAYGROUND_VARIANT: %w", err))
	}
	if variant.UsesServices() {
		if c.HeroesAPIEndpoint == "" {
			errs = append(errs, fmt.Errorf("HEROES_API_ENDPOINT is required for the %s variant", variant))
		}
		if c.SearchEndpoint() == "" {
			errs = append(errs, fmt.Errorf("SEARCH_API_ENDPOINT or SEARCH_SERVICE is required for the %s variant", variant))
		}
		if c.Search.Index == "" {
			errs = append(errs, fmt.Errorf("SEARCH_INDEX is required for the %s variant", variant))
		}
	}

	if c.MaxRecursion < 0 {
		errs = append(errs, fmt.Errorf("MAX_RECURSION must be >= 0, got %d", c.MaxRecursion))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("LISTEN_ADDR must not be empty"))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}
	return nil
}
