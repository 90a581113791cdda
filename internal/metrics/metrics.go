package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit classes recorded on worker exit.
const (
	ExitClean  = "clean"  // exit code 0
	ExitCrash  = "crash"  // nonzero exit code
	ExitSignal = "signal" // killed by signal
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	workerSpawns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "herd",
			Subsystem: "cluster",
			Name:      "worker_spawns_total",
			Help:      "Number of worker processes spawned, initial and replacement.",
		},
	)
	workerSpawnFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "herd",
			Subsystem: "cluster",
			Name:      "worker_spawn_failures_total",
			Help:      "Number of worker spawn attempts that failed before the process started.",
		},
	)
	workerRespawns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "herd",
			Subsystem: "cluster",
			Name:      "worker_respawns_total",
			Help:      "Number of replacement workers spawned after an exit.",
		},
	)
	workerExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "herd",
			Subsystem: "cluster",
			Name:      "worker_exits_total",
			Help:      "Number of worker exits by class.",
		}, []string{"class"},
	)
	workersOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "herd",
			Subsystem: "cluster",
			Name:      "workers_online",
			Help:      "Workers currently online (accepting traffic).",
		},
	)
	workersLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "herd",
			Subsystem: "cluster",
			Name:      "workers_live",
			Help:      "Workers currently starting or online.",
		},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "herd",
			Subsystem: "cluster",
			Name:      "state_transitions_total",
			Help:      "Number of worker record state transitions.",
		}, []string{"from", "to"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		workerSpawns, workerSpawnFailures, workerRespawns,
		workerExits, workersOnline, workersLive, stateTransitions,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the
// DefaultGatherer. The caller wires it into the admin router.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncSpawn() {
	if regOK.Load() {
		workerSpawns.Inc()
	}
}

func IncSpawnFailure() {
	if regOK.Load() {
		workerSpawnFailures.Inc()
	}
}

func IncRespawn() {
	if regOK.Load() {
		workerRespawns.Inc()
	}
}

func IncExit(class string) {
	if regOK.Load() {
		workerExits.WithLabelValues(class).Inc()
	}
}

func SetOnline(n int) {
	if regOK.Load() {
		workersOnline.Set(float64(n))
	}
}

func SetLive(n int) {
	if regOK.Load() {
		workersLive.Set(float64(n))
	}
}

func RecordStateTransition(from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(from, to).Inc()
	}
}
