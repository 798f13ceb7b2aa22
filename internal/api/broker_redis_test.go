package api

import (
	"os"
	"testing"
	"time"
)

func newTestRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()
	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}
	b, err := NewRedisBroker()
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}
	return b
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	b := newTestRedisBroker(t)
	ch := b.Subscribe("run_rt")
	defer b.Unsubscribe("run_rt", ch)

	b.Publish("run_rt", ProgressEvent{Type: "run.progress", Data: map[string]any{"iteration": float64(1)}})
	select {
	case evt := <-ch:
		if evt.Type != "run.progress" {
			t.Fatalf("got type %s", evt.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestRedisBrokerUnsubscribeSurvivesLaterPublishes(t *testing.T) {
	b := newTestRedisBroker(t)
	ch := b.Subscribe("run_gone")
	b.Unsubscribe("run_gone", ch)

	// A publish after the subscriber left must not reach a closed channel.
	b.Publish("run_gone", ProgressEvent{Type: "run.progress"})

	// The pump goroutine is the sole closer: the channel must end cleanly.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel never closed after unsubscribe")
		}
	}
}
