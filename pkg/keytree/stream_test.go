package keytree

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

type capturePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads []any
}

func (p *capturePublisher) Publish(ctx context.Context, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return nil
}

func streamTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestWithEventsPublishesOnWrites(t *testing.T) {
	pub := &capturePublisher{}
	store := WithEvents(NewMemoryStore(), pub, "events", streamTestLogger())
	ctx := context.Background()

	if err := store.Set(ctx, "donations/d1", map[string]any{"quantity": 5}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := store.Push(ctx, "users/u1/notifications", map[string]any{"title": "hi"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := store.Delete(ctx, "donations/d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.payloads) != 3 {
		t.Fatalf("expected 3 events, got %d", len(pub.payloads))
	}
	for _, channel := range pub.channels {
		if channel != "events" {
			t.Fatalf("unexpected channel %q", channel)
		}
	}
}

func TestWithEventsSkipsFailedWrites(t *testing.T) {
	pub := &capturePublisher{}
	store := WithEvents(NewMemoryStore(), pub, "events", streamTestLogger())

	var dest map[string]any
	if err := store.Get(context.Background(), "missing", &dest); err == nil {
		t.Fatal("expected not found")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.payloads) != 0 {
		t.Fatalf("reads and failures must not publish, got %d events", len(pub.payloads))
	}
}

func TestHubFansOutByPrefix(t *testing.T) {
	hub := NewHub(streamTestLogger(), 4)

	all := hub.Subscribe("")
	donations := hub.Subscribe("donations")
	users := hub.Subscribe("users/u1")
	defer all.Close()
	defer donations.Close()
	defer users.Close()

	hub.Broadcast(Event{Path: "donations/d1/quantity", Kind: EventTransact})
	hub.Broadcast(Event{Path: "users/u2/notifications", Kind: EventPush})

	if got := len(all.C); got != 2 {
		t.Fatalf("catch-all expected 2 events, got %d", got)
	}
	if got := len(donations.C); got != 1 {
		t.Fatalf("donations expected 1 event, got %d", got)
	}
	if got := len(users.C); got != 0 {
		t.Fatalf("users/u1 expected no events, got %d", got)
	}

	evt := <-donations.C
	if evt.Path != "donations/d1/quantity" {
		t.Fatalf("unexpected path %q", evt.Path)
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub(streamTestLogger(), 1)
	sub := hub.Subscribe("")
	defer sub.Close()

	hub.Broadcast(Event{Path: "a", Kind: EventSet})
	hub.Broadcast(Event{Path: "b", Kind: EventSet})

	if got := len(sub.C); got != 1 {
		t.Fatalf("expected buffer of 1, got %d", got)
	}
	evt := <-sub.C
	if evt.Path != "a" {
		t.Fatalf("oldest event should survive, got %q", evt.Path)
	}
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	hub := NewHub(streamTestLogger(), 4)
	sub := hub.Subscribe("")
	sub.Close()

	hub.Broadcast(Event{Path: "a", Kind: EventSet})

	if _, ok := <-sub.C; ok {
		t.Fatal("closed subscription must not deliver")
	}
}
