package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fleetops/herd/internal/history"
)

// DB implements history.Sink for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS worker_events(
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			worker_id INTEGER NOT NULL,
			pid INTEGER NOT NULL,
			exit_code INTEGER NOT NULL DEFAULT 0,
			signal TEXT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_worker_events_worker ON worker_events(worker_id);`,
		`CREATE INDEX IF NOT EXISTS idx_worker_events_type ON worker_events(type);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Send(ctx context.Context, evt history.Event) error {
	var sig sql.NullString
	if evt.Signal != "" {
		sig = sql.NullString{String: evt.Signal, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO worker_events(type, worker_id, pid, exit_code, signal, occurred_at)
		VALUES($1,$2,$3,$4,$5,$6);`,
		string(evt.Type), evt.WorkerID, evt.PID, evt.ExitCode, sig, evt.OccurredAt.UTC())
	return err
}

func (p *DB) Close() error { return p.db.Close() }

// CountByType returns the number of recorded events of the given type.
func (p *DB) CountByType(ctx context.Context, t history.EventType) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM worker_events WHERE type = $1;`, string(t)).Scan(&n)
	return n, err
}
