// Copyright (c) Microsoft. All rights reserved.

package chat

import "sync"

// Transcript is the ordered, append-only conversation history of a session.
// It is the only record of conversation context: every model call is built
// from a snapshot of it.
//
// Reads return deep copies, so callers never hold references into stored
// turns. Turns are only ever appended; the one in-place mutation is
// rating a turn through [FeedbackRecorder].
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn

	// appended is called after every Append, outside the lock.
	appended func()
}

// NewTranscript creates a transcript seeded with turns.
func NewTranscript(turns ...Turn) *Transcript {
	t := &Transcript{}
	t.Append(turns...)
	return t
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Turns returns a copy of every turn in order.
func (t *Transcript) Turns() []Turn {
	return t.Since(0)
}

// Since returns a copy of the turns at index i and later. It returns nil
// when i is at or past the end.
func (t *Transcript) Since(i int) []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(t.turns) {
		return nil
	}
	out := make([]Turn, 0, len(t.turns)-i)
	for _, turn := range t.turns[i:] {
		out = append(out, turn.clone())
	}
	return out
}

// Append adds turns atomically: readers see all of them or none.
func (t *Transcript) Append(turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	t.mu.Lock()
	for _, turn := range turns {
		t.turns = append(t.turns, turn.clone())
	}
	appended := t.appended
	t.mu.Unlock()

	if appended != nil {
		appended()
	}
}

func (t *Transcript) onAppend(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appended = fn
}

// setFeedback rates the first assistant turn carrying responseID. It
// reports false when there is no such turn or it was already rated.
func (t *Transcript) setFeedback(responseID string, fb Feedback) (Turn, bool) {
	if responseID == "" {
		return Turn{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.turns {
		turn := &t.turns[i]
		if turn.Role != RoleAssistant || turn.ResponseID != responseID {
			continue
		}
		if turn.Feedback != FeedbackNone {
			return Turn{}, false
		}
		turn.Feedback = fb
		return turn.clone(), true
	}
	return Turn{}, false
}
