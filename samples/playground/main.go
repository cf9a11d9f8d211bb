// Copyright (c) Microsoft. All rights reserved.

// Command playground serves the tool-comparison chat playground.
//
// Configuration is read from .env and the environment:
//
//	CHAT_API_ENDPOINT=https://<resource>.openai.azure.com
//	CHAT_MODEL=<deployment>
//	CHAT_API_KEY=<key>                # optional; Azure AD is used when empty
//	HEROES_API_ENDPOINT=https://<stats-api>
//	SEARCH_SERVICE=<search-service>
//	SEARCH_API_KEY=<key>              # optional; Azure AD is used when empty
//	PLAYGROUND_VARIANT=functions      # or chat, agent, semantic
//	go run ./samples/playground
//
// Then open a session with POST /sessions and talk to it over
// POST /sessions/{id}/messages or the /sessions/{id}/ws WebSocket.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/jochenvw/toolcompare/agent"
	"github.com/jochenvw/toolcompare/chat"
	"github.com/jochenvw/toolcompare/config"
	"github.com/jochenvw/toolcompare/openai"
	"github.com/jochenvw/toolcompare/search"
	"github.com/jochenvw/toolcompare/semantic"
	"github.com/jochenvw/toolcompare/server"
	"github.com/jochenvw/toolcompare/telemetry"
	"github.com/jochenvw/toolcompare/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("playground stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	creds := &lazyCredential{}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	client, err := newChatClient(cfg, httpClient, creds)
	if err != nil {
		return err
	}

	variant, err := cfg.PlaygroundVariant()
	if err != nil {
		return err
	}

	registry, err := newRegistry(cfg, variant, client, httpClient, creds)
	if err != nil {
		return err
	}

	sink, closeSink, err := newAuditSink(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	srv := server.New(newAssistant(cfg, variant, client, registry, sink, logger),
		server.WithAPIKey(cfg.ServerAPIKey),
		server.WithLogger(logger),
		server.WithVariant(cfg.Variant),
	)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting playground", "addr", cfg.ListenAddr, "variant", cfg.Variant, "tools", registry.Len())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// lazyCredential creates the DefaultAzureCredential the first time a client
// needs one.
type lazyCredential struct {
	cred azcore.TokenCredential
}

func (l *lazyCredential) get() (azcore.TokenCredential, error) {
	if l.cred != nil {
		return l.cred, nil
	}
	slog.Info("using Azure AD authentication (DefaultAzureCredential)")
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	l.cred = cred
	return cred, nil
}

// newChatClient creates the chat-completion client for the configured API
// type, preferring the API key and falling back to Azure AD.
func newChatClient(cfg *config.Config, httpClient *http.Client, creds *lazyCredential) (*openai.Client, error) {
	if !cfg.IsAzure() {
		opts := []openai.Option{
			openai.WithModel(cfg.Chat.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.Chat.Endpoint != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Chat.Endpoint))
		}
		return openai.New(cfg.Chat.Key, opts...), nil
	}

	opts := []openai.Option{
		openai.WithBaseURL(cfg.Chat.Endpoint),
		openai.WithAzureDeployment(cfg.Chat.Model),
		openai.WithAPIVersion(cfg.Chat.APIVersion),
		openai.WithHTTPClient(httpClient),
	}
	if cfg.Chat.Key != "" {
		opts = append(opts, openai.WithAzureAPIKey(cfg.Chat.Key))
	} else {
		cred, err := creds.get()
		if err != nil {
			return nil, err
		}
		opts = append(opts, openai.WithAzureCredential(cred))
	}
	return openai.New("", opts...), nil
}

// newAssistant creates the assistant that answers for variant.
func newAssistant(cfg *config.Config, variant tools.Variant, client chat.ChatClient, registry *chat.Registry, sink telemetry.Sink, logger *slog.Logger) chat.Assistant {
	switch variant {
	case tools.VariantAgent:
		return agent.NewAgent(client,
			agent.WithName("playground"),
			agent.WithTools(registry),
			agent.WithAuditSink(sink),
			agent.WithLogger(logger),
			agent.WithMiddleware(agent.LoggingMiddleware(logger)),
			agent.WithChatMiddleware(chat.LoggingMiddleware(logger)),
			agent.WithFunctionMiddleware(chat.FunctionLoggingMiddleware(logger)),
		)
	case tools.VariantSemantic:
		kernel := semantic.NewKernel(client, semantic.WithKernelLogger(logger.With("component", "kernel")))
		return semantic.NewAssistant(kernel,
			semantic.WithAuditSink(sink),
			semantic.WithLogger(logger),
		)
	default:
		return chat.NewOrchestrator(client,
			chat.WithRegistry(registry),
			chat.WithMaxRecursion(cfg.MaxRecursion),
			chat.WithAuditSink(sink),
			chat.WithLogger(logger),
			chat.WithChatMiddleware(chat.LoggingMiddleware(logger)),
			chat.WithFunctionMiddleware(chat.FunctionLoggingMiddleware(logger)),
		)
	}
}

// newRegistry builds the tools of the configured variant.
func newRegistry(cfg *config.Config, variant tools.Variant, client chat.ChatClient, httpClient *http.Client, creds *lazyCredential) (*chat.Registry, error) {
	if !variant.UsesServices() {
		return tools.RegistryFor(variant, tools.Dependencies{Client: client})
	}

	clientOpts := azcore.ClientOptions{
		Transport: httpClient,
		Retry:     policy.RetryOptions{MaxRetries: -1},
	}

	stats, err := tools.NewHeroStatsClient(cfg.HeroesAPIEndpoint, &clientOpts)
	if err != nil {
		return nil, err
	}

	searchOpts := &search.ClientOptions{ClientOptions: clientOpts}
	var hotels *search.Client
	if cfg.Search.Key != "" {
		hotels, err = search.NewClientWithKey(cfg.SearchEndpoint(), cfg.Search.Index,
			azcore.NewKeyCredential(cfg.Search.Key), searchOpts)
	} else {
		var cred azcore.TokenCredential
		if cred, err = creds.get(); err == nil {
			hotels, err = search.NewClient(cfg.SearchEndpoint(), cfg.Search.Index, cred, searchOpts)
		}
	}
	if err != nil {
		return nil, err
	}

	return tools.RegistryFor(variant, tools.Dependencies{Client: client, Stats: stats, Hotels: hotels})
}

// newAuditSink logs every audit event and, when AUDIT_DB is set, also
// stores it in SQLite.
func newAuditSink(cfg *config.Config, logger *slog.Logger) (telemetry.Sink, func(), error) {
	logSink := telemetry.NewLogSink(logger.With("component", "audit"))
	if cfg.AuditDB == "" {
		return logSink, func() {}, nil
	}

	db, err := telemetry.NewSQLiteSink(cfg.AuditDB)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close audit db", "error", err)
		}
	}
	return telemetry.Multi{logSink, db}, closeFn, nil
}
