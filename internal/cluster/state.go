package cluster

// State is the lifecycle state of a worker record. All transitions happen on
// the supervisor's event loop; workers never report state directly, only
// lifecycle events.
//
//	Starting -> Online           (online event)
//	Starting|Online -> Errored   (error event; advisory, not terminal)
//	any non-Exited  -> Exited    (exit event; terminal for pool accounting)
type State int

const (
	StateStarting State = iota
	StateOnline
	StateExited
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateOnline:
		return "online"
	case StateExited:
		return "exited"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// live reports whether the state counts toward the pool-size invariant.
func (s State) live() bool { return s == StateStarting || s == StateOnline }
