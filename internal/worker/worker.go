package worker

import (
	"os"
	"strconv"
)

// EnvWorkerID marks a process as a spawned worker. The primary sets it on
// every child it launches; its absence means the process owns the pool (or
// runs unsupervised in single-process mode).
const EnvWorkerID = "HERD_WORKER_ID"

// readyFD is the file descriptor number of the inherited lifecycle pipe.
// The primary passes the write end as ExtraFiles[0], which lands on fd 3.
const readyFD = 3

// Spawned reports whether this process was launched by a herd primary.
// The role is decided once from the environment and never re-evaluated.
func Spawned() bool {
	_, ok := os.LookupEnv(EnvWorkerID)
	return ok
}

// ID returns the logical worker id assigned at spawn time, or -1 when this
// process is not a spawned worker.
func ID() int {
	v, ok := os.LookupEnv(EnvWorkerID)
	if !ok {
		return -1
	}
	id, err := strconv.Atoi(v)
	if err != nil || id < 0 {
		return -1
	}
	return id
}
