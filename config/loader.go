// Copyright (c) Microsoft. All rights reserved.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
)

// DefaultEnvFile is read when no files are passed to [NewLoader].
const DefaultEnvFile = ".env"

// keys lists every variable the loader reads.
var keys = []string{
	"CHAT_API_ENDPOINT", "CHAT_API_TYPE", "CHAT_API_KEY", "CHAT_MODEL", "CHAT_API_VERSION",
	"EMBEDDING_API_ENDPOINT", "EMBEDDING_API_TYPE", "EMBEDDING_API_KEY", "EMBEDDING_MODEL",
	"SEARCH_SERVICE", "SEARCH_API_ENDPOINT", "SEARCH_INDEX", "SEARCH_API_KEY",
	"HEROES_API_ENDPOINT",
	"PLAYGROUND_VARIANT", "MAX_RECURSION",
	"LISTEN_ADDR", "SERVER_API_KEY",
	"AUDIT_DB", "HTTP_TIMEOUT", "LOG_LEVEL",
}

// Loader merges defaults, .env files and the environment, in increasing
// order of precedence.
type Loader struct {
	lookup func(string) (string, bool)
	files  []string
}

// NewLoader creates a Loader over the process environment. With no files
// it reads [DefaultEnvFile] if present.
func NewLoader(files ...string) *Loader {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	return &Loader{lookup: os.LookupEnv, files: files}
}

// NewLoaderWithEnv creates a Loader over a fixed environment (for testing).
func NewLoaderWithEnv(env map[string]string, files ...string) *Loader {
	return &Loader{
		lookup: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		files: files,
	}
}

// Load resolves and validates the configuration. Missing .env files are
// skipped; empty values leave the default in place. An earlier file wins
// over a later one for the same key.
func (l *Loader) Load() (*Config, error) {
	values := map[string]string{}
	for _, f := range l.files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range m {
			if _, seen := values[k]; !seen {
				values[k] = v
			}
		}
	}
	for _, k := range keys {
		if v, ok := l.lookup(k); ok {
			values[k] = v
		}
	}

	input := make(map[string]any, len(values))
	for k, v := range values {
		if v != "" {
			input[k] = v
		}
	}

	cfg := DefaultConfig()
	if err := decode(input, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(input map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "env",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Load is a convenience function using the default loader.
func Load() (*Config, error) {
	return NewLoader().Load()
}
