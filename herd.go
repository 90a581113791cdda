// Package herd supervises a pool of worker processes that share one
// listening endpoint, restarting workers that exit and exposing a read-only
// view of pool health. It is the embeddable facade over the internal
// packages; the herd binary in cmd/herd is a thin wrapper around it.
package herd

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetops/herd/internal/cluster"
	cfg "github.com/fleetops/herd/internal/config"
	"github.com/fleetops/herd/internal/history"
	hfactory "github.com/fleetops/herd/internal/history/factory"
	"github.com/fleetops/herd/internal/metrics"
	iapi "github.com/fleetops/herd/internal/server"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cluster.Config

type Supervisor = cluster.Supervisor

type Spawner = cluster.Spawner

type ExecSpawner = cluster.ExecSpawner

type Stats = cluster.Stats

type WorkerStat = cluster.WorkerStat

type HistorySink = history.Sink

// NewSupervisor builds a supervisor over the given spawner.
func NewSupervisor(c Config, sp Spawner) *Supervisor { return cluster.NewSupervisor(c, sp) }

// LoadConfig reads the TOML file at path with HERD_* env overrides applied.
func LoadConfig(path string) (*cfg.Config, error) { return cfg.Load(path) }

// NewHistorySink opens a lifecycle event sink by DSN (sqlite path or
// postgres URL).
func NewHistorySink(dsn string) (HistorySink, error) { return hfactory.NewFromDSN(dsn) }

// NewAdminServer starts the primary's admin HTTP server on addr, logging
// through the default slog logger.
func NewAdminServer(addr string, sup *Supervisor) *http.Server {
	return iapi.NewAdminServer(addr, sup, nil)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
