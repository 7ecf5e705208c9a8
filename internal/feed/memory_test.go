package feed

import (
	"context"
	"testing"
	"time"
)

func waitEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestMemoryFeedPublishSubscribe(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()

	sub, err := f.Subscribe(context.Background(), "roles", "groups")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := f.Publish(context.Background(), "roles"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ev := waitEvent(t, sub); ev.Collection != "roles" {
		t.Errorf("event collection = %q, want %q", ev.Collection, "roles")
	}
}

func TestMemoryFeedFiltersCollections(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()

	sub, err := f.Subscribe(context.Background(), "roles")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := f.Publish(context.Background(), "members"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := f.Publish(context.Background(), "roles"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Only the subscribed collection comes through.
	if ev := waitEvent(t, sub); ev.Collection != "roles" {
		t.Errorf("event collection = %q, want %q", ev.Collection, "roles")
	}
}

func TestMemoryFeedClose(t *testing.T) {
	f := NewMemoryFeed()

	sub, err := f.Subscribe(context.Background(), "roles")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub.Events; ok {
		t.Error("events channel still open after Close")
	}
	if err := f.Publish(context.Background(), "roles"); err != ErrFeedUnavailable {
		t.Errorf("Publish after Close = %v, want ErrFeedUnavailable", err)
	}
	if _, err := f.Subscribe(context.Background(), "roles"); err != ErrFeedUnavailable {
		t.Errorf("Subscribe after Close = %v, want ErrFeedUnavailable", err)
	}
}

func TestSubscriptionClose(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()

	sub, err := f.Subscribe(context.Background(), "roles")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sub.Close()
	sub.Close() // safe to call twice

	if err := f.Publish(context.Background(), "roles"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
