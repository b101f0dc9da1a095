package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"camstream/internal/platform/logger"
)

type recordingWorkers struct {
	calls atomic.Int32
}

func (w *recordingWorkers) Shutdown(ctx context.Context) error {
	w.calls.Add(1)
	return nil
}

func TestServe_listen_failure_stops_workers(t *testing.T) {
	// Hold the port so ListenAndServe fails.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	workers := &recordingWorkers{}
	var startupStopped atomic.Bool
	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}

	done := make(chan int, 1)
	go func() {
		done <- serve(srv, workers, make(chan os.Signal), func() { startupStopped.Store(true) }, time.Second, logger.Discard())
	}()

	select {
	case code := <-done:
		if code != 1 {
			t.Errorf("exit code: got %d want 1", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after listen failure")
	}
	if n := workers.calls.Load(); n != 1 {
		t.Errorf("expected workers to be shut down once, got %d", n)
	}
	if !startupStopped.Load() {
		t.Error("expected startup launches to be cancelled")
	}
}

func TestServe_signal_shuts_down(t *testing.T) {
	workers := &recordingWorkers{}
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM

	code := serve(srv, workers, sig, func() {}, time.Second, logger.Discard())
	if code != 0 {
		t.Errorf("exit code: got %d want 0", code)
	}
	if n := workers.calls.Load(); n != 1 {
		t.Errorf("expected workers to be shut down once, got %d", n)
	}
}
