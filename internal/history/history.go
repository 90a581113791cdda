// Package history records worker lifecycle events for audit and metrics.
// The supervisor never consults history for control decisions; it is an
// append-only observability surface.
package history

import (
	"context"
	"time"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventSpawn EventType = "spawn"
	EventExit  EventType = "exit"
)

// Event is one worker lifecycle occurrence.
type Event struct {
	Type       EventType `json:"type"`
	WorkerID   int       `json:"worker_id"`
	PID        int       `json:"pid"`
	ExitCode   int       `json:"exit_code"`
	Signal     string    `json:"signal,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink persists lifecycle events. Send is best-effort from the supervisor's
// point of view: a failing sink is logged, never escalated.
type Sink interface {
	EnsureSchema(ctx context.Context) error
	Send(ctx context.Context, evt Event) error
	Close() error
}
