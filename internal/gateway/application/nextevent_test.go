package application

import (
	"context"
	"testing"
	"time"

	"github.com/eventhive/eventhive/pkg/clock"
)

type memNextEventStore struct {
	data map[string]NextEvent
	sets int
}

func newMemNextEventStore() *memNextEventStore {
	return &memNextEventStore{data: map[string]NextEvent{}}
}

func (m *memNextEventStore) Get(_ context.Context, username string) (NextEvent, bool, error) {
	ev, ok := m.data[username]
	return ev, ok, nil
}

func (m *memNextEventStore) Set(_ context.Context, username string, ev NextEvent) error {
	m.sets++
	m.data[username] = ev
	return nil
}

func TestApplyOrderNotification(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	june := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	september := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

	events := newFakeEventsGateway()
	events.events["soon"] = EventInfo{EventID: "soon", Name: "Go Conf", StartDate: june}
	events.events["later"] = EventInfo{EventID: "later", Name: "PyData", StartDate: september}
	events.events["finished"] = EventInfo{EventID: "finished", Name: "Old Conf", StartDate: now.Add(-48 * time.Hour)}

	t.Run("first purchase seeds the read model", func(t *testing.T) {
		store := newMemNextEventStore()
		svc := NewNextEventService(testLogger(), events, store, clock.NewFixed(now))

		if err := svc.Apply(ctx, "alice", "later"); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		next, ok, _ := svc.Get(ctx, "alice")
		if !ok || next.EventID != "later" {
			t.Fatalf("next = %+v, ok = %v", next, ok)
		}
	})

	t.Run("a sooner event replaces the cached one", func(t *testing.T) {
		store := newMemNextEventStore()
		svc := NewNextEventService(testLogger(), events, store, clock.NewFixed(now))

		_ = svc.Apply(ctx, "alice", "later")
		if err := svc.Apply(ctx, "alice", "soon"); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		next, _, _ := svc.Get(ctx, "alice")
		if next.EventID != "soon" {
			t.Fatalf("next = %+v, want soon", next)
		}
	})

	t.Run("a later event is ignored", func(t *testing.T) {
		store := newMemNextEventStore()
		svc := NewNextEventService(testLogger(), events, store, clock.NewFixed(now))

		_ = svc.Apply(ctx, "alice", "soon")
		sets := store.sets
		if err := svc.Apply(ctx, "alice", "later"); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if store.sets != sets {
			t.Fatal("read model was rewritten for a later event")
		}
		next, _, _ := svc.Get(ctx, "alice")
		if next.EventID != "soon" {
			t.Fatalf("next = %+v, want soon", next)
		}
	})

	t.Run("an already-started event never enters the model", func(t *testing.T) {
		store := newMemNextEventStore()
		svc := NewNextEventService(testLogger(), events, store, clock.NewFixed(now))

		if err := svc.Apply(ctx, "alice", "finished"); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if _, ok, _ := svc.Get(ctx, "alice"); ok {
			t.Fatal("a finished event was cached as upcoming")
		}
		// And it cannot displace a genuinely upcoming one either.
		_ = svc.Apply(ctx, "alice", "soon")
		_ = svc.Apply(ctx, "alice", "finished")
		next, _, _ := svc.Get(ctx, "alice")
		if next.EventID != "soon" {
			t.Fatalf("next = %+v, want soon", next)
		}
	})

	t.Run("a cached entry that has since started does not block later purchases", func(t *testing.T) {
		store := newMemNextEventStore()
		clk := clock.NewFixed(now)
		svc := NewNextEventService(testLogger(), events, store, clk)

		_ = svc.Apply(ctx, "alice", "soon")
		clk.Advance(june.Sub(now) + time.Hour) // the cached event has started

		if _, ok, _ := svc.Get(ctx, "alice"); ok {
			t.Fatal("Get served an event that already started")
		}
		if err := svc.Apply(ctx, "alice", "later"); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		next, ok, _ := svc.Get(ctx, "alice")
		if !ok || next.EventID != "later" {
			t.Fatalf("next = %+v, ok = %v, want later", next, ok)
		}
	})

	t.Run("unknown event fails", func(t *testing.T) {
		store := newMemNextEventStore()
		svc := NewNextEventService(testLogger(), events, store, clock.NewFixed(now))

		if err := svc.Apply(ctx, "alice", "nope"); err == nil {
			t.Fatal("Apply succeeded for an unknown event")
		}
	})
}
