package activite

import (
	"context"
	"testing"
	"time"

	"github.com/assogest/assogest/internal/logging"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(logging.Nop())

	subA := hub.Subscribe(1)
	subB := hub.Subscribe(1)
	other := hub.Subscribe(2)
	defer other.Close()

	hub.Broadcast(1, Event{Type: "presence"})

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case ev := <-sub.C:
			if ev.Type != "presence" {
				t.Fatalf("wrong event: %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	select {
	case ev := <-other.C:
		t.Fatalf("event leaked to another session: %+v", ev)
	default:
	}

	subA.Close()
	if got := hub.Listeners(1); got != 1 {
		t.Fatalf("expected 1 listener after close, got %d", got)
	}
	subB.Close()
	if got := hub.Listeners(1); got != 0 {
		t.Fatalf("expected 0 listeners, got %d", got)
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(logging.Nop())
	sub := hub.Subscribe(1)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the buffer; extra events are dropped, not blocked on.
		for i := 0; i < 64; i++ {
			hub.Broadcast(1, Event{Type: "presence"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

func TestHubStop(t *testing.T) {
	hub := NewHub(logging.Nop())
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	sub := hub.Subscribe(1)

	hub.Stop(context.Background())

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription channel not closed on stop")
	}
	if got := hub.Subscribe(1); got != nil {
		t.Fatal("subscribe after stop should return nil")
	}
}
