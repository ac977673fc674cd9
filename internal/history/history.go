// Package history persists transcribed utterances in a local SQLite store.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one stored utterance.
type Entry struct {
	ID        int64
	Session   string
	Seq       int64
	Text      string
	StartMs   int64
	EndMs     int64
	CreatedAt time.Time
}

// Store wraps the utterance history database.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open creates or opens the history database at path, applying the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	s := &Store{db: db, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS utterances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session TEXT NOT NULL,
    seq INTEGER NOT NULL,
    text TEXT NOT NULL,
    start_ms INTEGER NOT NULL,
    end_ms INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_utterances_created ON utterances(created_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one utterance.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO utterances(session, seq, text, start_ms, end_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		e.Session, e.Seq, e.Text, e.StartMs, e.EndMs, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append utterance: %w", err)
	}
	return nil
}

// Recent returns up to limit utterances, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session, seq, text, start_ms, end_ms, created_at
		 FROM utterances ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Session, &e.Seq, &e.Text, &e.StartMs, &e.EndMs, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if ts, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune keeps only the newest keep utterances and reclaims space.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM utterances WHERE id NOT IN (
		    SELECT id FROM utterances ORDER BY id DESC LIMIT ?
		 )`, keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA incremental_vacuum`); err != nil {
		return fmt.Errorf("vacuum history: %w", err)
	}
	return nil
}
