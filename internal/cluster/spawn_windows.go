//go:build windows

package cluster

import (
	"errors"
	"os"
	"os/exec"
)

func setSysProcAttr(cmd *exec.Cmd) {}

// No graceful signal delivery on Windows; Kill is the only termination path.
func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func exitDisposition(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), ""
	}
	return -1, ""
}
