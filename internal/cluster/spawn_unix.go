//go:build !windows

package cluster

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSysProcAttr puts the worker in its own process group so termination
// signals reach the worker and anything it forked.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(pid int) error {
	return unix.Kill(-pid, unix.SIGTERM)
}

// exitDisposition extracts the exit code and fatal signal (if any) from the
// error returned by cmd.Wait.
func exitDisposition(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return -1, unix.SignalName(unix.Signal(ws.Signal()))
		}
		return ee.ExitCode(), ""
	}
	return -1, ""
}
