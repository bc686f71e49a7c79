package application

import (
	"context"
	"time"

	"github.com/eventhive/eventhive/internal/events/domain"
)

// InventoryStore is the durable record of ticket quantities. AdjustAvailable
// must be atomic per (eventID, ticketType): of two racing decrements that
// together exceed the available quantity, exactly one succeeds.
type InventoryStore interface {
	GetAvailable(ctx context.Context, eventID, ticketType string) (int, error)
	// AdjustAvailable adds delta (which may be negative) to the available
	// quantity and returns the new value. It fails with
	// domain.ErrInsufficientInventory when the result would be negative,
	// leaving the stored quantity unchanged.
	AdjustAvailable(ctx context.Context, eventID, ticketType string, delta int) (int, error)
}

// LockTable holds active locks keyed by lock ID. Take and TakeExpired are
// each atomic per lock: a lock handed out by one call is never handed out
// again, so inventory is restored (or consumed) at most once per lock.
type LockTable interface {
	Insert(lock domain.Lock)
	// Take removes and returns the lock when it exists and is unexpired at
	// now. Expired locks are left in place for the sweep to release.
	Take(lockID string, now time.Time) (domain.Lock, bool)
	// TakeExpired removes and returns every lock whose TTL has passed at now.
	TakeExpired(now time.Time) []domain.Lock
	// Len reports the number of locks currently held.
	Len() int
}

// EventRepository covers event metadata CRUD plus the admin quantity
// adjustment, which moves total and available together.
type EventRepository interface {
	Create(ctx context.Context, ev domain.Event) (domain.Event, error)
	GetByID(ctx context.Context, id string) (domain.Event, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Event, error)
	UpdateDates(ctx context.Context, id string, start, end *time.Time) (domain.Event, error)
	// AdjustQuantity shifts both total and available of a ticket type by
	// delta, failing with domain.ErrInsufficientInventory when either would
	// go negative.
	AdjustQuantity(ctx context.Context, eventID, ticketType string, delta int) (domain.TicketType, error)
}
