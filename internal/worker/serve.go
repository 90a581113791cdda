package worker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Serve runs srv on ln until ctx is canceled, then drains in-flight requests
// for at most drain before returning. It reports readiness through n once the
// accept loop is running.
//
// The termination request from the primary arrives as SIGTERM, which the
// caller is expected to translate into ctx cancellation.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, n *Notifier, drain time.Duration) error {
	if drain <= 0 {
		drain = 5 * time.Second
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	// Serve owns the listener at this point; report readiness rather than
	// probing ourselves over loopback.
	if err := n.Online(); err != nil {
		_ = n.Error(err)
	}
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
