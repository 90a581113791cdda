package herd

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fleetops/herd/internal/cluster"
	"github.com/fleetops/herd/internal/history"
)

type poolSpawner struct {
	mu     sync.Mutex
	count  int
	events chan<- cluster.Event
}

type poolHandle struct{ pid int }

func (h poolHandle) PID() int         { return h.pid }
func (h poolHandle) Terminate() error { return nil }

func (p *poolSpawner) Spawn(id, seq int, events chan<- cluster.Event) (cluster.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	p.events = events
	return poolHandle{pid: 5000 + seq}, nil
}

func TestFacadePoolLifecycle(t *testing.T) {
	sp := &poolSpawner{}
	s := NewSupervisor(Config{Enabled: true, WorkerCount: 2}, sp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !s.Start(ctx) {
		t.Fatal("Start returned false on the primary")
	}

	st := s.Stats()
	if st == nil || st.TotalWorkers != 2 || st.PrimaryPID != os.Getpid() {
		t.Fatalf("stats = %+v", st)
	}

	s.Shutdown()
	sp.events <- cluster.Event{Seq: 0, Kind: cluster.EventExit}
	sp.events <- cluster.Event{Seq: 1, Kind: cluster.EventExit}
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not wind down")
	}
}

func TestFacadeLoadConfig(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Server.Listen != ":8080" {
		t.Fatalf("default listen = %q", c.Server.Listen)
	}
}

func TestFacadeHistorySink(t *testing.T) {
	sink, err := NewHistorySink(filepath.Join(t.TempDir(), "herd.db"))
	if err != nil {
		t.Fatalf("NewHistorySink: %v", err)
	}
	defer func() { _ = sink.Close() }()
	ctx := context.Background()
	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	err = sink.Send(ctx, history.Event{
		Type: history.EventSpawn, WorkerID: 0, PID: 1, OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestFacadeRegisterMetrics(t *testing.T) {
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("second register: %v", err)
	}
}
