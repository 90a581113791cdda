package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"
)

func TestServeReportsOnlineAndDrains(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer func() { _ = pr.Close() }()
	n := newNotifierWriter(pw)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "pong")
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, ln, n, time.Second) }()

	// The online report is written once the accept loop holds the listener.
	sc := bufio.NewScanner(pr)
	if !sc.Scan() {
		t.Fatal("no lifecycle message before first request")
	}
	var m Message
	if err := json.Unmarshal(sc.Bytes(), &m); err != nil || m.Event != EventOnline {
		t.Fatalf("unexpected lifecycle line %q", sc.Text())
	}

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v after graceful drain", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestServeReturnsListenerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	// Closing the listener out from under Serve forces a non-graceful error.
	srv := &http.Server{Handler: http.NewServeMux(), ReadHeaderTimeout: time.Second}
	done := make(chan error, 1)
	go func() { done <- Serve(context.Background(), srv, ln, NewNotifier(), time.Second) }()

	time.Sleep(20 * time.Millisecond)
	_ = ln.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error after the listener was closed")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after listener close")
	}
}
