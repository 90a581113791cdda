package worker

import (
	"encoding/json"
	"io"
	"os"
	"sync"
)

// Lifecycle event names carried over the ready pipe.
const (
	EventOnline = "online"
	EventError  = "error"
)

// Message is one lifecycle report written by a worker to its primary.
// Messages are newline-delimited JSON on the inherited pipe.
type Message struct {
	Event string `json:"event"`
	Error string `json:"error,omitempty"`
}

// Notifier reports worker lifecycle events upward. In single-process mode
// (no primary, no pipe) every method is a no-op so callers never need to
// distinguish the two modes.
type Notifier struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewNotifier opens the lifecycle pipe inherited from the primary.
// Returns a no-op notifier when this process was not spawned.
func NewNotifier() *Notifier {
	if !Spawned() {
		return &Notifier{}
	}
	return &Notifier{w: os.NewFile(readyFD, "herd-lifecycle")}
}

// newNotifierWriter is used by tests to substitute the pipe.
func newNotifierWriter(w io.WriteCloser) *Notifier { return &Notifier{w: w} }

// Online tells the primary this worker is ready to accept traffic.
func (n *Notifier) Online() error {
	return n.send(Message{Event: EventOnline})
}

// Error reports a non-fatal problem. The primary logs it; it does not by
// itself trigger a restart.
func (n *Notifier) Error(err error) error {
	if err == nil {
		return nil
	}
	return n.send(Message{Event: EventError, Error: err.Error()})
}

func (n *Notifier) send(m Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.w == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = n.w.Write(append(b, '\n'))
	return err
}

// Close releases the pipe. Safe to call on a no-op notifier.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.w != nil {
		_ = n.w.Close()
		n.w = nil
	}
}
