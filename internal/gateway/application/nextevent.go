package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventhive/eventhive/pkg/clock"
)

// NextEventService maintains each user's soonest upcoming purchased event,
// fed by order notifications. The read model is advisory: notifications are
// at-most-once, so a missed update self-heals on the user's next purchase.
type NextEventService struct {
	log    *slog.Logger
	events EventsGateway
	store  NextEventStore
	clock  clock.Clock
}

func NewNextEventService(log *slog.Logger, events EventsGateway, store NextEventStore, clk clock.Clock) *NextEventService {
	return &NextEventService{log: log, events: events, store: store, clock: clk}
}

// Apply folds one order notification into the read model: the referenced
// event replaces the cached one when it starts sooner. Events that have
// already started never enter the model, and a cached entry whose start has
// passed no longer shields later purchases from replacing it.
func (s *NextEventService) Apply(ctx context.Context, username, eventID string) error {
	info, err := s.events.GetEventInfo(ctx, eventID)
	if err != nil {
		return fmt.Errorf("fetch event %s: %w", eventID, err)
	}

	now := s.clock.Now()
	if !info.StartDate.After(now) {
		return nil
	}

	current, ok, err := s.store.Get(ctx, username)
	if err != nil {
		return fmt.Errorf("read next event for %s: %w", username, err)
	}
	if ok && current.StartDate.After(now) && !info.StartDate.Before(current.StartDate) {
		return nil
	}

	next := NextEvent{EventID: info.EventID, Name: info.Name, StartDate: info.StartDate}
	if err := s.store.Set(ctx, username, next); err != nil {
		return fmt.Errorf("store next event for %s: %w", username, err)
	}
	s.log.Info("next event updated", "username", username, "event_id", eventID)
	return nil
}

// Get returns the user's cached next event. An entry whose start date has
// passed is reported as absent; only upcoming events are ever served.
func (s *NextEventService) Get(ctx context.Context, username string) (NextEvent, bool, error) {
	ev, ok, err := s.store.Get(ctx, username)
	if err != nil || !ok {
		return NextEvent{}, false, err
	}
	if !ev.StartDate.After(s.clock.Now()) {
		return NextEvent{}, false, nil
	}
	return ev, true, nil
}
