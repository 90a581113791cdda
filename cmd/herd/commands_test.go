package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fleetops/herd/internal/cluster"
)

func stubAdmin(t *testing.T) *httptest.Server {
	t.Helper()
	st := cluster.Stats{
		PrimaryPID: 999,
		Workers: []cluster.WorkerStat{
			{ID: 0, PID: 1000},
			{ID: 1, PID: 1001, Dead: true},
		},
		TotalWorkers: 1,
		MaxWorkers:   2,
		CPUCount:     4,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/cluster/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildRootCommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{"serve": false, "status": false, "version": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, ok := range want {
		if !ok {
			t.Fatalf("missing %q subcommand", name)
		}
	}
}

func TestRunStatusHuman(t *testing.T) {
	srv := stubAdmin(t)
	var out bytes.Buffer
	f := &StatusFlags{APIUrl: srv.URL, APITimeout: time.Second}
	if err := runStatus(context.Background(), f, &out); err != nil {
		t.Fatalf("runStatus: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "primary pid 999, 1/2 workers live (4 cores)") {
		t.Fatalf("summary line missing:\n%s", got)
	}
	if !strings.Contains(got, "worker 1") || !strings.Contains(got, "dead") {
		t.Fatalf("dead worker not listed:\n%s", got)
	}
}

func TestRunStatusJSON(t *testing.T) {
	srv := stubAdmin(t)
	var out bytes.Buffer
	f := &StatusFlags{APIUrl: srv.URL, APITimeout: time.Second, JSON: true}
	if err := runStatus(context.Background(), f, &out); err != nil {
		t.Fatalf("runStatus: %v", err)
	}
	var st cluster.Stats
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if st.PrimaryPID != 999 || len(st.Workers) != 2 {
		t.Fatalf("decoded stats = %+v", st)
	}
}

func TestRunStatusUnreachable(t *testing.T) {
	f := &StatusFlags{APIUrl: "http://127.0.0.1:1", APITimeout: 200 * time.Millisecond}
	if err := runStatus(context.Background(), f, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error when no primary is running")
	}
}
