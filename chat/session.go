// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Session owns one user's [Transcript]. At most one submission runs against
// a session at a time; a second one fails with [ErrSessionBusy].
type Session struct {
	id string

	// busy is held for the whole of a submission or reset.
	busy sync.Mutex

	mu         sync.Mutex
	transcript *Transcript
	changed    chan struct{}
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithTranscript seeds the session with an existing transcript.
func WithTranscript(t *Transcript) SessionOption {
	return func(s *Session) { s.transcript = t }
}

// NewSession creates a Session with a random id and an empty transcript.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{id: uuid.NewString(), changed: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.transcript == nil {
		s.transcript = NewTranscript()
	}
	s.transcript.onAppend(s.notify)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Transcript returns the session's current transcript.
func (s *Session) Transcript() *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Reset discards the transcript and starts a new, empty one. It fails with
// [ErrSessionBusy] while a submission is running.
func (s *Session) Reset() error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	t := NewTranscript()
	t.onAppend(s.notify)
	s.mu.Lock()
	s.transcript = t
	s.mu.Unlock()

	s.notify()
	return nil
}

// Changed returns a channel that is closed at the session's next change:
// turns appended to its transcript, or a reset. Take the channel before
// reading the transcript so no change goes unnoticed.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

func (s *Session) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.changed)
	s.changed = make(chan struct{})
}

// Exchange runs fn with exclusive use of the session's transcript and
// returns the turns appended while it ran, also when fn fails. It fails
// with [ErrSessionBusy], without calling fn, while another exchange or a
// reset is running.
func (s *Session) Exchange(fn func(t *Transcript) error) ([]Turn, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	t := s.Transcript()
	start := t.Len()
	err = fn(t)
	return t.Since(start), err
}

func (s *Session) acquire() (release func(), err error) {
	if !s.busy.TryLock() {
		return nil, ErrSessionBusy
	}
	return s.busy.Unlock, nil
}
