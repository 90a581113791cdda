package cluster

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/fleetops/herd/internal/env"
	"github.com/fleetops/herd/internal/logger"
	"github.com/fleetops/herd/internal/worker"
)

// Handle controls one spawned worker process.
type Handle interface {
	PID() int
	// Terminate asks the worker to shut down voluntarily (SIGTERM to its
	// process group). It does not wait.
	Terminate() error
}

// Spawner creates worker processes and forwards their lifecycle events into
// the supervisor's channel. id is the logical worker id (reusable across the
// pool's history); seq keys the events back to the supervisor's record table.
type Spawner interface {
	Spawn(id, seq int, events chan<- Event) (Handle, error)
}

// ExecSpawner launches workers by re-executing the current binary with the
// role marker in the environment. The write end of a lifecycle pipe is
// inherited on fd 3; worker stdout/stderr are captured to rotated files.
type ExecSpawner struct {
	Env  *env.Env      // base environment for workers; nil means OS env only
	Log  logger.Config // worker output capture
	Args []string      // child argv[1:]; nil means inherit os.Args[1:]
}

func (sp *ExecSpawner) Spawn(id, seq int, events chan<- Event) (Handle, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("lifecycle pipe: %w", err)
	}
	args := sp.Args
	if args == nil {
		args = os.Args[1:]
	}
	// ok: re-exec of our own binary
	// #nosec G204
	cmd := exec.Command(exe, args...)
	e := sp.Env
	if e == nil {
		e = env.New()
	}
	cmd.Env = e.Merge([]string{worker.EnvWorkerID + "=" + strconv.Itoa(id)})
	cmd.ExtraFiles = []*os.File{pw}
	setSysProcAttr(cmd)

	if sp.Log.Dir != "" {
		_ = os.MkdirAll(sp.Log.Dir, 0o750)
	}
	outW, errW, _ := sp.Log.Writers(fmt.Sprintf("worker-%d", id))
	if outW != nil {
		cmd.Stdout = outW
	}
	if errW != nil {
		cmd.Stderr = errW
	}

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		closeWriters(outW, errW)
		return nil, err
	}
	// The child holds the write end now; drop ours so the reader sees EOF
	// once the worker exits.
	_ = pw.Close()

	go readLifecycle(seq, pr, events)
	go func() {
		werr := cmd.Wait()
		closeWriters(outW, errW)
		code, sig := exitDisposition(werr)
		events <- Event{Seq: seq, Kind: EventExit, Err: werr, ExitCode: code, Signal: sig}
	}()
	return &execHandle{pid: cmd.Process.Pid}, nil
}

type execHandle struct {
	pid int
}

func (h *execHandle) PID() int { return h.pid }

func (h *execHandle) Terminate() error { return terminate(h.pid) }

// readLifecycle turns newline-delimited JSON messages from the worker's pipe
// into supervisor events. Malformed lines are dropped; the worker's exit is
// reported by the waiter, never from here.
func readLifecycle(seq int, pr *os.File, events chan<- Event) {
	defer func() { _ = pr.Close() }()
	sc := bufio.NewScanner(pr)
	for sc.Scan() {
		var m worker.Message
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			continue
		}
		switch m.Event {
		case worker.EventOnline:
			events <- Event{Seq: seq, Kind: EventOnline}
		case worker.EventError:
			events <- Event{Seq: seq, Kind: EventError, Err: errors.New(m.Error)}
		}
	}
}

func closeWriters(ws ...io.WriteCloser) {
	for _, w := range ws {
		if w != nil {
			_ = w.Close()
		}
	}
}
