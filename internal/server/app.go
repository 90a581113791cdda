package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// App is the request-serving unit each worker runs on the shared port. The
// supervisor makes no assumption about what it does between readiness and
// exit; these handlers exist so a running pool is observable end to end.
type App struct {
	workerID int
}

// NewApp builds the worker application surface. workerID is -1 in
// single-process mode.
func NewApp(workerID int) *App {
	return &App{workerID: workerID}
}

func (a *App) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/healthz", handleHealthz)
	g.GET("/whoami", a.handleWhoami)
	return g
}

// NewAppServer wraps the app handler in an http.Server. The address comes
// from the shared listener, so Addr stays empty.
func NewAppServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (a *App) handleWhoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"worker_id": a.workerID,
		"pid":       os.Getpid(),
	})
}
