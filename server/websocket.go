// Copyright (c) Microsoft. All rights reserved.

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jochenvw/toolcompare/chat"
)

// Client → server message types.
const (
	wsSubmit   = "submit"
	wsFeedback = "feedback"
)

// Server → client event types.
const (
	wsTurn  = "turn"
	wsReset = "reset"
	wsError = "error"
)

type wsMessage struct {
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	ResponseID string `json:"responseId,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
}

type wsEvent struct {
	Type       string     `json:"type"`
	Index      int        `json:"index"`
	Turn       *chat.Turn `json:"turn,omitempty"`
	ResponseID string     `json:"responseId,omitempty"`
	Recorded   *bool      `json:"recorded,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// handleWebSocket streams the transcript to the client: every turn on
// connect, then every turn appended afterwards, whichever client caused
// it. Messages from one connection are handled one at a time.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	feed := &turnFeed{ws: ws, sess: sess}
	changed := sess.Changed()
	if err := feed.sync(); err != nil {
		s.logger.Error("failed initial sync", "session_id", sess.ID(), "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.pushChanges(ctx, feed, changed)

	for {
		var msg wsMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read error", "session_id", sess.ID(), "error", err)
			}
			return
		}

		if err := s.handleWSMessage(r, feed, msg); err != nil {
			s.logger.Warn("websocket write error", "session_id", sess.ID(), "error", err)
			return
		}
	}
}

// pushChanges syncs the feed at every change to the session until ctx is
// done. A failed write closes the connection, which ends the read loop.
func (s *Server) pushChanges(ctx context.Context, feed *turnFeed, changed <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
		changed = feed.sess.Changed()
		if err := feed.sync(); err != nil {
			s.logger.Warn("websocket push error", "session_id", feed.sess.ID(), "error", err)
			feed.ws.Close()
			return
		}
	}
}

func (s *Server) handleWSMessage(r *http.Request, feed *turnFeed, msg wsMessage) error {
	switch msg.Type {
	case wsSubmit:
		if msg.Content == "" {
			return feed.send(wsEvent{Type: wsError, Error: "content must not be empty"})
		}
		_, submitErr := s.assistant.Submit(r.Context(), feed.sess, msg.Content)
		// Sync before reporting the error so it follows the turns it
		// concerns.
		if err := feed.sync(); err != nil {
			return err
		}
		if submitErr != nil {
			return feed.send(wsEvent{Type: wsError, Error: submitErr.Error()})
		}
		return nil

	case wsFeedback:
		recorded := s.recordFeedback(r, feed.sess, feedbackRequest{
			ResponseID: msg.ResponseID,
			Feedback:   msg.Feedback,
		})
		return feed.send(wsEvent{Type: wsFeedback, ResponseID: msg.ResponseID, Recorded: &recorded})

	default:
		return feed.send(wsEvent{Type: wsError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

// turnFeed tracks how much of the transcript a connection has seen. Its
// methods serialize writes, since a connection allows one writer at a
// time.
type turnFeed struct {
	ws   *websocket.Conn
	sess *chat.Session

	mu   sync.Mutex
	seen *chat.Transcript
	sent int
}

func (f *turnFeed) send(ev wsEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ws.WriteJSON(ev)
}

// sync pushes turns the client has not seen. A new transcript means the
// session was reset; the client is told so and gets the new turns from
// the start.
func (f *turnFeed) sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.sess.Transcript()
	if f.seen != nil && t != f.seen {
		if err := f.ws.WriteJSON(wsEvent{Type: wsReset}); err != nil {
			return err
		}
		f.sent = 0
	}
	f.seen = t
	for _, turn := range t.Since(f.sent) {
		if err := f.ws.WriteJSON(wsEvent{Type: wsTurn, Index: f.sent, Turn: &turn}); err != nil {
			return err
		}
		f.sent++
	}
	return nil
}
