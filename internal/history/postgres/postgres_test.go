package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fleetops/herd/internal/history"
)

func TestPostgresSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	sink, err := New(connStr)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	// Re-running schema creation must be harmless.
	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to re-ensure schema: %v", err)
	}

	now := time.Now().UTC()
	events := []history.Event{
		{Type: history.EventSpawn, WorkerID: 0, PID: 4242, OccurredAt: now},
		{Type: history.EventExit, WorkerID: 0, PID: 4242, ExitCode: -1, Signal: "SIGTERM", OccurredAt: now},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send event %+v: %v", e, err)
		}
	}

	spawns, err := sink.CountByType(ctx, history.EventSpawn)
	if err != nil {
		t.Fatalf("Failed to count spawn events: %v", err)
	}
	exits, err := sink.CountByType(ctx, history.EventExit)
	if err != nil {
		t.Fatalf("Failed to count exit events: %v", err)
	}
	if spawns != 1 || exits != 1 {
		t.Errorf("Expected 1 spawn and 1 exit, got %d and %d", spawns, exits)
	}
}
