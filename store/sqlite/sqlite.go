/*
Package sqlite provides a SQLite-backed BlobStore for the action store.

PURPOSE:
  Persists the scheduled-action blob as one row of a key/value table, and
  keeps an audit trail of compaction runs next to it.

INTERFACES IMPLEMENTED:
  schedule.BlobStore: Get / Put of the opaque store blob
  api.CompactionLog:  RecordCompaction

KEY TABLES:
  blobs:       key -> value, plus updated_at
  compactions: one row per compaction run (source, counts, error)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single pooled connection so
  ":memory:" databases are shared by every statement.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging): readers don't
  block the single writer.

USAGE:
  store, err := sqlite.New("./data/actions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  records := schedule.NewRecordStore(store, rule)

SEE ALSO:
  - schedule/blob.go: BlobStore interface
  - schedule/blob/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements schedule.BlobStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// now is overridden in tests.
	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = dbPath + "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- One row per persisted blob
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Compaction audit trail
	CREATE TABLE IF NOT EXISTS compactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		dropped INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_compactions_started_at
		ON compactions(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BLOBS
// =============================================================================

// Get returns the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put replaces the blob stored under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO blobs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, query, key, data, s.now().UTC().Format(time.RFC3339Nano))
	return err
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM blobs WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("blob %q: bad updated_at %q: %w", key, raw, err)
	}
	return t, true, nil
}

// =============================================================================
// COMPACTION RUNS
// =============================================================================

// CompactionRun is one audited compaction.
type CompactionRun struct {
	ID          int64
	Source      string // "schedule", "api", "cli"
	Records     int
	Dropped     int
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// RecordCompaction saves a compaction run and returns its id.
func (s *Store) RecordCompaction(ctx context.Context, r CompactionRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO compactions (source, records, dropped, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		r.Source, r.Records, r.Dropped, nullString(r.Error),
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListCompactions returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListCompactions(ctx context.Context, limit int) ([]CompactionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, source, records, dropped, error, started_at, completed_at
		FROM compactions
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []CompactionRun
	for rows.Next() {
		var r CompactionRun
		var errText sql.NullString
		var startedAt, completedAt string
		if err := rows.Scan(&r.ID, &r.Source, &r.Records, &r.Dropped, &errText, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"blobs", "compactions"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
