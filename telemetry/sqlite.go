// Copyright (c) Microsoft. All rights reserved.

package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink buffers events in memory and writes them to a SQLite database
// in a single transaction on Flush.
type SQLiteSink struct {
	db *sql.DB

	mu      sync.Mutex
	pending []Event
}

var _ Sink = (*SQLiteSink)(nil)

// StoredEvent is an audit event read back from the database.
type StoredEvent struct {
	ID           int64
	Name         string
	CompletionID string
	Dimensions   map[string]any
	CreatedAt    time.Time
}

// NewSQLiteSink opens (or creates) the database at path and runs migrations.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		completion_id TEXT NOT NULL DEFAULT '',
		dimensions TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_completion ON audit_events(completion_id);
	`)
	return err
}

// Close closes the underlying database connection. Unflushed events are lost.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) Emit(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, ev)
}

// Flush writes all pending events. On failure the events stay pending and
// are retried by the next Flush.
func (s *SQLiteSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit flush: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audit_events (name, completion_id, dimensions) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare audit insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range s.pending {
		dims, err := json.Marshal(ev.Dimensions())
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Name(), err)
		}
		if _, err := stmt.ExecContext(ctx, ev.Name(), completionID(ev), string(dims)); err != nil {
			return fmt.Errorf("insert %s event: %w", ev.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit flush: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}

// Events returns stored events in insertion order. An empty completionID
// returns all events.
func (s *SQLiteSink) Events(ctx context.Context, completionID string) ([]StoredEvent, error) {
	query := `SELECT id, name, completion_id, dimensions, created_at FROM audit_events`
	var args []any
	if completionID != "" {
		query += ` WHERE completion_id = ?`
		args = append(args, completionID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var (
			ev   StoredEvent
			dims string
		)
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.CompletionID, &dims, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(dims), &ev.Dimensions); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
