//go:build windows

package netutil

import "syscall"

// Windows has no SO_REUSEPORT; only a single worker can hold the address,
// so clustering there degrades to worker_count=1 behavior.
func reusePort(network, address string, c syscall.RawConn) error { return nil }
