package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	rid := "run_1"
	ch := b.Subscribe(rid)
	defer func() { recover() }() // ignore close panic if already closed

	evt := ProgressEvent{Type: "run.progress", Data: map[string]any{"iteration": 3}}
	b.Publish(rid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["iteration"].(int) != 3 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(rid, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker()
	rid := "run_2"
	ch := b.Subscribe(rid)

	// Fill beyond the channel buffer; publishes must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(rid, ProgressEvent{Type: "run.progress", Data: map[string]any{"iteration": i}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	b.Unsubscribe(rid, ch)
}

func TestBrokerIsolatesRuns(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("run_a")
	c := b.Subscribe("run_b")
	defer b.Unsubscribe("run_b", c)

	b.Publish("run_a", ProgressEvent{Type: "run.done"})
	select {
	case <-a:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscriber on run_a got nothing")
	}
	select {
	case evt := <-c:
		t.Fatalf("subscriber on run_b got %s", evt.Type)
	default:
	}
	b.Unsubscribe("run_a", a)
}
