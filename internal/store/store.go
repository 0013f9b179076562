// Package store is the sqlite store of record. It persists stitch
// scheduling state, the session cycle pointer, the completion event log,
// and state snapshots. It backs both the embedded scheduler and the record
// server, and implements the backend interfaces directly so a standalone
// setup needs no network at all.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

// Open connects to the SQLite database at dsn, applies the recommended
// pragmas, and creates any missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init sequence counter: %w", err)
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EventRepo returns the completion event repository.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, seq: s.seq}
}

// SnapshotRepo returns the snapshot repository.
func (s *Store) SnapshotRepo() SnapshotRepo {
	return &snapshotRepo{db: s.db, seq: s.seq}
}

// Reset wipes all learner state. Used by the reset command.
func (s *Store) Reset() error {
	for _, table := range []string{"stitch_state", "session_state", "completion_events", "snapshots", "global_sequence"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`); err != nil {
		return fmt.Errorf("reseed sequence: %w", err)
	}
	return nil
}

// applyPragmas configures SQLite for single-writer interactive use.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS stitch_state (
	thread_id        TEXT NOT NULL,
	stitch_id        TEXT NOT NULL,
	position         INTEGER NOT NULL,
	skip_distance    INTEGER NOT NULL,
	distractor_level INTEGER NOT NULL,
	updated_at       TEXT NOT NULL,
	PRIMARY KEY (thread_id, stitch_id)
);

CREATE TABLE IF NOT EXISTS session_state (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	active_tube INTEGER NOT NULL,
	thread_id   TEXT NOT NULL DEFAULT '',
	cycle_count INTEGER NOT NULL DEFAULT 0,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS completion_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence   INTEGER NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	thread_id  TEXT NOT NULL,
	stitch_id  TEXT NOT NULL,
	tube       INTEGER NOT NULL,
	score      INTEGER NOT NULL,
	max_score  INTEGER NOT NULL,
	mastered   INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_completion_events_sequence ON completion_events (sequence);

CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence   INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	data       TEXT NOT NULL
);
`

func migrate(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}

// DefaultDBPath resolves the database file path in priority order:
// 1. TRIPLEHELIX_DB environment variable
// 2. $XDG_DATA_HOME/triplehelix/triplehelix.db
// 3. ~/.local/share/triplehelix/triplehelix.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("TRIPLEHELIX_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "triplehelix", "triplehelix.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
