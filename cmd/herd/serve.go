package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetops/herd/internal/cluster"
	"github.com/fleetops/herd/internal/config"
	"github.com/fleetops/herd/internal/env"
	"github.com/fleetops/herd/internal/history/factory"
	"github.com/fleetops/herd/internal/metrics"
	"github.com/fleetops/herd/internal/netutil"
	"github.com/fleetops/herd/internal/server"
	"github.com/fleetops/herd/internal/worker"
)

func runServe(f *ServeFlags) error {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return err
	}
	log := cfg.Log.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseEnv := env.New()
	baseEnv.SetAll(cfg.Env)

	sup := cluster.NewSupervisor(cfg.SupervisorConfig(), &cluster.ExecSpawner{
		Env: baseEnv,
		Log: cfg.Log,
	})
	sup.SetLogger(log)

	// History and metrics are primary concerns; a spawned worker skips both.
	if cfg.ClusterEnabled() && !worker.Spawned() {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		if cfg.History.DSN != "" {
			sink, err := factory.NewFromDSN(cfg.History.DSN)
			if err != nil {
				return fmt.Errorf("open history sink: %w", err)
			}
			if err := sink.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("history schema: %w", err)
			}
			defer func() { _ = sink.Close() }()
			sup.SetHistorySinks(sink)
		}
	}

	if sup.Start(ctx) {
		return runPrimary(ctx, cfg, sup, log)
	}
	return runWorker(ctx, cfg, log)
}

// runPrimary serves the admin API until the pool winds down. The supervisor
// owns signal handling for the pool itself.
func runPrimary(ctx context.Context, cfg *config.Config, sup *cluster.Supervisor, log *slog.Logger) error {
	admin := server.NewAdminServer(cfg.Server.AdminListen, sup, log)
	log.Info("admin API listening", "addr", cfg.Server.AdminListen)

	select {
	case <-ctx.Done():
		// Termination signal: the supervisor is already shutting the pool
		// down; give workers the configured grace to exit.
		select {
		case <-sup.Done():
		case <-time.After(cfg.Server.ShutdownGrace):
			log.Warn("shutdown grace elapsed with workers still running")
		}
	case <-sup.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = admin.Shutdown(sctx)
	log.Info("primary exiting")
	return nil
}

// runWorker serves application traffic on the shared endpoint. It covers
// both supervised workers and single-process development mode.
func runWorker(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	id := worker.ID()
	if id >= 0 {
		log = log.With("worker", id)
	}
	n := worker.NewNotifier()
	defer n.Close()

	ln, err := netutil.Listen(ctx, cfg.Server.Listen)
	if err != nil {
		_ = n.Error(err)
		return fmt.Errorf("listen %s: %w", cfg.Server.Listen, err)
	}
	app := server.NewApp(id)
	srv := server.NewAppServer(app.Handler())
	log.Info("serving", "addr", ln.Addr().String(), "pid", os.Getpid())
	return worker.Serve(ctx, srv, ln, n, cfg.Server.DrainTimeout)
}
