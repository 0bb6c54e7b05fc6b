// Package store provides a SQLite-backed audit log of completed QA turns.
// Each turn records the trace id, question, answer, and retrieval stats, so
// operators can inspect what the pipeline did after the fact. The log is
// write-mostly; it is never fed back into the model context.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/docqa/docqa-go/internal/agents"
)

// Turn is a persisted QA turn.
type Turn struct {
	// TraceID correlates the turn with its pipeline log lines.
	TraceID string
	// Question is the user's question verbatim.
	Question string
	// Answer is the final response shown to the user.
	Answer string
	// ContextChunks is the number of retrieved chunks fed to generation.
	ContextChunks int
	// Duration is the wall-clock time of the turn.
	Duration time.Duration
	// CreatedAt is when the turn was persisted.
	CreatedAt time.Time
}

// SQLiteStore is a turn audit log backed by a local SQLite database.
// It implements agents.TurnRecorder.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the turn audit database.
// It resolves to ~/.docqa/turns.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docqa")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "turns.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS turns (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id       TEXT    NOT NULL,
    question       TEXT    NOT NULL,
    answer         TEXT    NOT NULL,
    context_chunks INTEGER NOT NULL,
    duration_ms    INTEGER NOT NULL,
    created_at     INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_turns_created
    ON turns (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists one completed turn.
func (s *SQLiteStore) Record(ctx context.Context, rec agents.TurnRecord) error {
	const q = `INSERT INTO turns (trace_id, question, answer, context_chunks, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		rec.TraceID, rec.Question, rec.Answer, rec.ContextChunks,
		rec.Duration.Milliseconds(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Recent returns the most recent n turns, newest-first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Turn, error) {
	const q = `
SELECT trace_id, question, answer, context_chunks, duration_ms, created_at
FROM   turns
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var durationMs, ts int64
		if err := rows.Scan(&t.TraceID, &t.Question, &t.Answer, &t.ContextChunks, &durationMs, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		t.CreatedAt = time.Unix(ts, 0)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return turns, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
