// Package netutil provides the shared listening endpoint for the worker
// pool. Every worker binds the same TCP address with SO_REUSEPORT so the
// kernel distributes accepted connections across workers; the supervisor
// performs no load balancing of its own.
package netutil

import (
	"context"
	"net"
)

// Listen binds addr with port sharing enabled so multiple worker processes
// can hold the same address concurrently.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reusePort}
	return lc.Listen(ctx, "tcp", addr)
}
