package factory

import (
	"errors"
	"strings"

	"github.com/fleetops/herd/internal/history"
	pg "github.com/fleetops/herd/internal/history/postgres"
	sq "github.com/fleetops/herd/internal/history/sqlite"
)

// NewFromDSN selects a history sink implementation based on DSN.
// Supported:
//   - sqlite:   "sqlite://<path>" or a bare filepath (treated as sqlite)
//   - postgres: DSN starting with "postgres://" or "postgresql://"
func NewFromDSN(dsn string) (history.Sink, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	if ld == "" {
		return nil, errors.New("empty DSN")
	}
	if strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://") {
		return pg.New(d)
	}
	if strings.HasPrefix(ld, "sqlite://") {
		path := strings.TrimPrefix(d, "sqlite://")
		return sq.New(path)
	}
	// default to sqlite path
	return sq.New(d)
}
