// Copyright (c) Microsoft. All rights reserved.

// Package semantic provides the semantic variant of the playground: every
// prompt becomes a one-shot prompt function run on a [Kernel], with no
// conversation history and no tools. The [Assistant] stores the kernel's
// log records for the run with the answer.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jochenvw/toolcompare/chat"
)

// Settings are the completion settings of a prompt function.
type Settings struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// DefaultSettings returns the settings prompt functions use unless the
// kernel is given others: 256 tokens, temperature 0, top_p 1.
func DefaultSettings() Settings {
	return Settings{MaxTokens: 256, Temperature: 0, TopP: 1}
}

func (s Settings) chatOptions() *chat.ChatOptions {
	temperature, topP := s.Temperature, s.TopP
	return &chat.ChatOptions{
		Temperature: &temperature,
		TopP:        &topP,
		MaxTokens:   s.MaxTokens,
		Stop:        s.Stop,
	}
}

// Kernel runs prompt functions against one chat service.
type Kernel struct {
	serviceID  string
	client     chat.ChatClient
	settings   Settings
	middleware []chat.ChatMiddleware
	logger     *slog.Logger
}

// KernelOption configures a [Kernel].
type KernelOption func(*Kernel)

// WithServiceID names the chat service in log records. Default: "chat".
func WithServiceID(id string) KernelOption {
	return func(k *Kernel) { k.serviceID = id }
}

// WithSettings replaces [DefaultSettings].
func WithSettings(s Settings) KernelOption {
	return func(k *Kernel) { k.settings = s }
}

// WithChatMiddleware adds [chat.ChatMiddleware] around every model call.
func WithChatMiddleware(mws ...chat.ChatMiddleware) KernelOption {
	return func(k *Kernel) { k.middleware = append(k.middleware, mws...) }
}

// WithKernelLogger sets the kernel's logger.
func WithKernelLogger(l *slog.Logger) KernelOption {
	return func(k *Kernel) {
		if l != nil {
			k.logger = l
		}
	}
}

// NewKernel creates a Kernel backed by client.
func NewKernel(client chat.ChatClient, opts ...KernelOption) *Kernel {
	k := &Kernel{
		serviceID: "chat",
		client:    client,
		settings:  DefaultSettings(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// WithLogger returns a copy of k that logs to l.
func (k *Kernel) WithLogger(l *slog.Logger) *Kernel {
	k2 := *k
	k2.logger = l
	return &k2
}

// Logger returns the kernel's logger.
func (k *Kernel) Logger() *slog.Logger { return k.logger }

// Function is a prompt template bound to a kernel.
type Function struct {
	kernel   *Kernel
	template string
}

// CreateFunction creates a prompt function from template. Blocks of the
// form {{$name}} are replaced with the variables given to Invoke.
func (k *Kernel) CreateFunction(template string) *Function {
	return &Function{kernel: k, template: template}
}

// Result is the outcome of one function invocation.
type Result struct {
	// Text is the model's answer.
	Text string

	// Sent is what the model was given: a single user turn holding the
	// rendered prompt.
	Sent []chat.Turn

	Completion *chat.Completion
	Elapsed    time.Duration
}

// Invoke renders the function's template with vars and sends it to the
// kernel's chat service.
func (f *Function) Invoke(ctx context.Context, vars map[string]string) (*Result, error) {
	k := f.kernel
	logger := k.logger.With("service_id", k.serviceID)

	logger.DebugContext(ctx, "rendering prompt template", "template", f.template)
	prompt := render(ctx, logger, f.template, vars)
	logger.DebugContext(ctx, "prompt rendered", "prompt", prompt)

	complete := chat.ChainChatMiddleware(k.client.Complete,
		append(append([]chat.ChatMiddleware(nil), k.middleware...), chat.LoggingMiddleware(logger))...)

	sent := []chat.Turn{chat.NewUserTurn(prompt)}
	start := time.Now()
	resp, err := complete(ctx, sent, k.settings.chatOptions())
	if err != nil {
		if !errors.Is(err, chat.ErrExternalCall) {
			err = fmt.Errorf("%w: chat completion: %w", chat.ErrExternalCall, err)
		}
		logger.ErrorContext(ctx, "function invocation failed", "error", err)
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty completion", chat.ErrInvalidResponse)
	}

	res := &Result{Text: resp.Text(), Sent: sent, Completion: resp, Elapsed: time.Since(start)}
	logger.InfoContext(ctx, "function invoked",
		"completion_id", resp.ID,
		"finish_reason", resp.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return res, nil
}
