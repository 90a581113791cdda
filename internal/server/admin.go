package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetops/herd/internal/cluster"
	"github.com/fleetops/herd/internal/metrics"
)

// StatsSource is the read-only pool health query served by the admin API.
// A nil snapshot means "not the primary, ask elsewhere".
type StatsSource interface {
	Stats() *cluster.Stats
}

// Admin provides the primary-only observability endpoints:
//
//	GET /cluster/stats
//	GET /metrics
//	GET /healthz
//
// Workers never mount this router; stats are a primary-only capability.
type Admin struct {
	src StatsSource
}

func NewAdmin(src StatsSource) *Admin {
	return &Admin{src: src}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (a *Admin) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/cluster/stats", a.handleStats)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	g.GET("/healthz", handleHealthz)
	return g
}

// NewAdminServer starts a standalone admin HTTP server on addr. The caller
// is responsible for shutting it down. Bind failures surface through log
// only; the primary keeps running without its admin surface.
func NewAdminServer(addr string, src StatsSource, log *slog.Logger) *http.Server {
	if log == nil {
		log = slog.Default()
	}
	a := NewAdmin(src)
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin server failed", "addr", addr, "error", err)
		}
	}()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

func (a *Admin) handleStats(c *gin.Context) {
	st := a.src.Stats()
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, errorResp{Error: "stats unavailable: not the primary"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
