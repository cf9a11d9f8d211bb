// Copyright (c) Microsoft. All rights reserved.

// Package server is the playground's UI shell: a JSON HTTP API and a
// WebSocket transcript feed over per-session chat state.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jochenvw/toolcompare/chat"
)

// Server serves the playground API for one assistant.
type Server struct {
	assistant chat.Assistant
	variant   string
	apiKey    string
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*chat.Session
}

// Option configures a [Server].
type Option func(*Server)

// WithAPIKey requires every request except /health to carry the key as a
// bearer token. WebSocket clients may pass it as the access_token query
// parameter instead.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVariant labels the playground variant reported to clients.
func WithVariant(v string) Option {
	return func(s *Server) { s.variant = v }
}

// New creates a Server whose sessions are answered by assistant.
func New(assistant chat.Assistant, opts ...Option) *Server {
	s := &Server{
		assistant: assistant,
		logger:    slog.Default(),
		sessions:  make(map[string]*chat.Session),
		upgrader: websocket.Upgrader{
			// The API key check runs before the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleResetSession)

	mux.HandleFunc("POST /sessions/{id}/messages", s.handleSubmit)
	mux.HandleFunc("POST /sessions/{id}/feedback", s.handleFeedback)

	mux.HandleFunc("GET /sessions/{id}/ws", s.handleWebSocket)

	return s.corsMiddleware(s.authMiddleware(mux))
}

// NewSession registers and returns a fresh session.
func (s *Server) NewSession() *chat.Session {
	sess := chat.NewSession()
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	return sess
}

func (s *Server) session(id string) (*chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	if s.apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			token = r.URL.Query().Get("access_token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.apiKey)) != 1 {
			s.errorResponse(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	s.logger.Error("API error", "status", status, "error", err)
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps a submission error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, chat.ErrExternalCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
