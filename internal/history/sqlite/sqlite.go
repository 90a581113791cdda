package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/fleetops/herd/internal/history"
)

// DB implements history.Sink for SQLite (modernc.org/sqlite driver, CGO-free).
// DSN is a filesystem path to the SQLite database file. Use ":memory:" for
// in-memory.
type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS worker_events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			worker_id INTEGER NOT NULL,
			pid INTEGER NOT NULL,
			exit_code INTEGER NOT NULL DEFAULT 0,
			signal TEXT NULL,
			occurred_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_worker_events_worker ON worker_events(worker_id);`,
		`CREATE INDEX IF NOT EXISTS idx_worker_events_type ON worker_events(type);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Send(ctx context.Context, evt history.Event) error {
	var sig sql.NullString
	if evt.Signal != "" {
		sig = sql.NullString{String: evt.Signal, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worker_events(type, worker_id, pid, exit_code, signal, occurred_at)
		VALUES(?, ?, ?, ?, ?, ?);`,
		string(evt.Type), evt.WorkerID, evt.PID, evt.ExitCode, sig, evt.OccurredAt.UTC())
	return err
}

func (s *DB) Close() error { return s.db.Close() }

// CountByType returns the number of recorded events of the given type.
// Used by stats reporting and tests; never by restart decisions.
func (s *DB) CountByType(ctx context.Context, t history.EventType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM worker_events WHERE type = ?;`, string(t)).Scan(&n)
	return n, err
}
