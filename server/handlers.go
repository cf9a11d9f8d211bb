// Copyright (c) Microsoft. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jochenvw/toolcompare/chat"
)

type submitRequest struct {
	Input string `json:"input"`
}

type submitResponse struct {
	Turns []chat.Turn `json:"turns"`
	Error string      `json:"error,omitempty"`
}

type feedbackRequest struct {
	ResponseID string `json:"responseId"`
	Feedback   string `json:"feedback"`
}

type sessionResponse struct {
	ID      string      `json:"id"`
	Variant string      `json:"variant,omitempty"`
	Turns   []chat.Turn `json:"turns"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.NewSession()
	s.logger.InfoContext(r.Context(), "session created", "session_id", sess.ID())
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": sess.ID()})
}

// lookup resolves the {id} path value or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	id := r.PathValue("id")
	sess, ok := s.session(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
	}
	return sess, ok
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	turns := sess.Transcript().Turns()
	if turns == nil {
		turns = []chat.Turn{}
	}
	s.jsonResponse(w, http.StatusOK, sessionResponse{
		ID:      sess.ID(),
		Variant: s.variant,
		Turns:   turns,
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit runs one submission and returns the turns it appended. On
// failure the response still carries the turns appended before the error.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		s.errorResponse(w, http.StatusBadRequest, errors.New("input must not be empty"))
		return
	}

	turns, err := s.assistant.Submit(r.Context(), sess, req.Input)
	if errors.Is(err, chat.ErrSessionBusy) {
		s.errorResponse(w, http.StatusConflict, err)
		return
	}

	resp := submitResponse{Turns: turns}
	if resp.Turns == nil {
		resp.Turns = []chat.Turn{}
	}
	if err != nil {
		resp.Error = err.Error()
		s.logger.ErrorContext(r.Context(), "submission failed", "session_id", sess.ID(), "error", err)
		s.jsonResponse(w, statusFor(err), resp)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	recorded := s.recordFeedback(r, sess, req)
	s.jsonResponse(w, http.StatusOK, map[string]bool{"recorded": recorded})
}

// recordFeedback maps the UI value and records it. Unrecognised values are
// passed through so the assistant ignores them.
func (s *Server) recordFeedback(r *http.Request, sess *chat.Session, req feedbackRequest) bool {
	fb, err := chat.ParseFeedback(req.Feedback)
	if err != nil {
		fb = chat.Feedback(req.Feedback)
	}
	return s.assistant.RecordFeedback(r.Context(), sess, req.ResponseID, fb)
}
