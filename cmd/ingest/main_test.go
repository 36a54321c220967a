package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"
)

func TestWaitForShutdown_ErrorBranchDrainsServer(t *testing.T) {
	server := &http.Server{Addr: ":0"}
	sigChan := make(chan os.Signal, 1)
	errChan := make(chan error, 1)

	componentErr := errors.New("watcher died")
	errChan <- componentErr

	_, cancel := context.WithCancel(context.Background())
	err := waitForShutdown(server, sigChan, errChan, cancel, time.Second)
	if !errors.Is(err, componentErr) {
		t.Fatalf("Expected the component error back, got %v", err)
	}

	// Shutdown must have been called on the error branch too.
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Expected server to be shut down, got %v", err)
	}
}

func TestWaitForShutdown_SignalBranch(t *testing.T) {
	server := &http.Server{Addr: ":0"}
	sigChan := make(chan os.Signal, 1)
	errChan := make(chan error, 1)

	sigChan <- os.Interrupt

	cancelled := false
	err := waitForShutdown(server, sigChan, errChan, func() { cancelled = true }, time.Second)
	if err != nil {
		t.Fatalf("Expected nil error on signal shutdown, got %v", err)
	}
	if !cancelled {
		t.Error("Expected the run context to be cancelled")
	}
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Expected server to be shut down, got %v", err)
	}
}
