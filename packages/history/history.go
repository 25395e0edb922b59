// Package history records request executions in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one executed request as stored in the history database.
type Entry struct {
	ID          int64
	ExecutedAt  time.Time
	File        string
	RequestName string
	Method      string
	URL         string
	StatusCode  int
	DurationMs  int64
	Success     bool
	FailureKind string
	Error       string
}

// Store is a handle to the execution-history database.
type Store struct {
	db *sql.DB
}

const defaultListLimit = 20

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	executed_at  TIMESTAMP NOT NULL,
	file         TEXT NOT NULL,
	request_name TEXT NOT NULL DEFAULT '',
	method       TEXT NOT NULL,
	url          TEXT NOT NULL,
	status_code  INTEGER NOT NULL DEFAULT 0,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	success      INTEGER NOT NULL,
	failure_kind TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts one execution. A zero ExecutedAt is stamped with the
// current time, and the entry's ID is filled in on success.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO executions
			(executed_at, file, request_name, method, url, status_code, duration_ms, success, failure_kind, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExecutedAt, e.File, e.RequestName, e.Method, e.URL,
		e.StatusCode, e.DurationMs, e.Success, e.FailureKind, e.Error)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// List returns the most recent executions, newest first. A non-positive
// limit selects the default page size.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, executed_at, file, request_name, method, url, status_code, duration_ms, success, failure_kind, error
		 FROM executions
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, limit)
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.ExecutedAt, &e.File, &e.RequestName, &e.Method, &e.URL,
			&e.StatusCode, &e.DurationMs, &e.Success, &e.FailureKind, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
