package cluster

// EventKind identifies a worker lifecycle notification.
type EventKind int

const (
	// EventOnline means the worker reported readiness over its pipe.
	EventOnline EventKind = iota
	// EventError is an advisory problem report; it never restarts anything
	// by itself.
	EventError
	// EventExit is the worker's single terminal notification, delivered when
	// the OS process has been reaped.
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventOnline:
		return "online"
	case EventError:
		return "error"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification delivered into the supervisor's single
// ordered event channel. Seq correlates the event with the supervisor's
// record table; logical worker ids may repeat across the pool's history, so
// they cannot serve as the key.
type Event struct {
	Seq      int
	Kind     EventKind
	Err      error  // set for EventError, and for EventExit when Wait errored
	ExitCode int    // EventExit only; -1 when killed by signal
	Signal   string // EventExit only; e.g. "SIGTERM", empty for code exits
}
