package chirp

import (
	"context"
	"testing"
	"time"
)

func newTestProber(client *Client) (*Prober, *fakeSleeper) {
	sleeper := &fakeSleeper{}
	prober := NewProber(client)
	prober.sleep = sleeper.sleep
	return prober, sleeper
}

func TestProberReadyFirstProbe(t *testing.T) {
	api := newStubAPI()
	srv := api.server()
	defer srv.Close()

	prober, sleeper := newTestProber(newTestClient(srv.URL))

	if !prober.EnsureAwake(context.Background()) {
		t.Fatal("Expected the prober to report ready")
	}
	if api.statusCalls != 1 {
		t.Errorf("Expected 1 probe, got %d", api.statusCalls)
	}
	if len(sleeper.slept) != 0 {
		t.Errorf("Expected no retry delays, got %v", sleeper.slept)
	}
}

func TestProberExhaustsAttempts(t *testing.T) {
	api := newStubAPI()
	api.readyAfter = 0 // never ready
	srv := api.server()
	defer srv.Close()

	prober, sleeper := newTestProber(newTestClient(srv.URL))

	if prober.EnsureAwake(context.Background()) {
		t.Fatal("Expected the prober to give up")
	}
	if api.statusCalls != DefaultProbeAttempts {
		t.Errorf("Expected %d probes, got %d", DefaultProbeAttempts, api.statusCalls)
	}
	if len(sleeper.slept) != DefaultProbeAttempts-1 {
		t.Fatalf("Expected %d delays, got %d", DefaultProbeAttempts-1, len(sleeper.slept))
	}
	for _, d := range sleeper.slept {
		if d < DefaultProbeDelay {
			t.Errorf("Expected delays of at least %v, got %v", DefaultProbeDelay, d)
		}
	}
}

func TestProberReadyOnSecondProbe(t *testing.T) {
	api := newStubAPI()
	api.readyAfter = 2
	srv := api.server()
	defer srv.Close()

	prober, sleeper := newTestProber(newTestClient(srv.URL))

	if !prober.EnsureAwake(context.Background()) {
		t.Fatal("Expected the prober to report ready")
	}
	if api.statusCalls != 2 {
		t.Errorf("Expected the third probe attempt to stay unconsumed, got %d probes", api.statusCalls)
	}
	if len(sleeper.slept) != 1 {
		t.Errorf("Expected exactly 1 delay, got %d", len(sleeper.slept))
	}
}

func TestProberTreatsTransportErrorAsNotReady(t *testing.T) {
	api := newStubAPI()
	srv := api.server()
	srv.Close() // connection refused for every probe

	prober, sleeper := newTestProber(newTestClient(srv.URL))

	if prober.EnsureAwake(context.Background()) {
		t.Fatal("Expected the prober to give up")
	}
	// A transport failure consumes an attempt like a not-ready answer; it is
	// never terminal on its own.
	if len(sleeper.slept) != DefaultProbeAttempts-1 {
		t.Errorf("Expected %d delays, got %d", DefaultProbeAttempts-1, len(sleeper.slept))
	}
}

func TestProberStopsOnCancelledContext(t *testing.T) {
	api := newStubAPI()
	api.readyAfter = 0
	srv := api.server()
	defer srv.Close()

	prober := NewProber(newTestClient(srv.URL))
	prober.sleep = sleepCtx // real sleeper, so cancellation matters

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan bool, 1)
	go func() { done <- prober.EnsureAwake(ctx) }()

	select {
	case ready := <-done:
		if ready {
			t.Fatal("Expected not ready on cancelled context")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Prober did not stop on cancelled context")
	}
}

func TestProberBusyFlagClears(t *testing.T) {
	api := newStubAPI()
	srv := api.server()
	defer srv.Close()

	prober, _ := newTestProber(newTestClient(srv.URL))

	prober.EnsureAwake(context.Background())
	if prober.Probing() {
		t.Error("Expected the probing flag to clear after EnsureAwake")
	}
}
