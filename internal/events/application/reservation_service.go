package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eventhive/eventhive/internal/events/domain"
	"github.com/eventhive/eventhive/pkg/clock"
)

const defaultLockTTL = 5 * time.Minute

// ReservationService implements the ticket reservation protocol: a lock
// atomically takes quantity out of the inventory, and the hold later either
// commits (quantity stays consumed) or is released back, by an explicit
// unlock or by TTL expiry. Expiry is enforced on every lookup, so
// correctness never depends on sweep timing.
type ReservationService struct {
	log   *slog.Logger
	inv   InventoryStore
	locks LockTable
	clock clock.Clock
	ttl   time.Duration
}

type ReservationOption func(*ReservationService)

// WithLockTTL overrides the default TTL for new locks.
func WithLockTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func NewReservationService(log *slog.Logger, inv InventoryStore, locks LockTable, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{
		log:   log,
		inv:   inv,
		locks: locks,
		clock: clk,
		ttl:   defaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lock places a TTL-bounded hold on quantity tickets. The inventory
// decrement is the serialization point: when it fails with
// ErrInsufficientInventory the error propagates unchanged and no lock is
// created.
func (s *ReservationService) Lock(ctx context.Context, eventID, ticketType string, quantity int, holder string) (domain.Lock, error) {
	if quantity <= 0 {
		return domain.Lock{}, domain.ErrInvalidQuantity
	}

	if _, err := s.inv.AdjustAvailable(ctx, eventID, ticketType, -quantity); err != nil {
		return domain.Lock{}, err
	}

	now := s.clock.Now()
	lock := domain.Lock{
		ID:         uuid.NewString(),
		EventID:    eventID,
		TicketType: ticketType,
		Quantity:   quantity,
		Holder:     holder,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	s.locks.Insert(lock)

	s.log.Info("ticket lock created",
		"lock_id", lock.ID,
		"event_id", eventID,
		"ticket_type", ticketType,
		"quantity", quantity,
		"expires_at", lock.ExpiresAt,
	)
	return lock, nil
}

// Unlock releases a hold and returns its quantity to the inventory. An
// absent, expired, or already-released lock is a no-op success: the caller
// may race with the expiry sweep, and only whichever party took the lock
// out of the table restores the quantity.
func (s *ReservationService) Unlock(ctx context.Context, lockID string) error {
	lock, ok := s.locks.Take(lockID, s.clock.Now())
	if !ok {
		return nil
	}

	if _, err := s.inv.AdjustAvailable(ctx, lock.EventID, lock.TicketType, lock.Quantity); err != nil {
		// Put the hold back so the release is retried by the caller or the
		// sweep rather than the quantity being lost.
		s.locks.Insert(lock)
		return fmt.Errorf("restore inventory for lock %s: %w", lockID, err)
	}

	s.log.Info("ticket lock released", "lock_id", lockID, "quantity", lock.Quantity)
	return nil
}

// Commit converts a hold into permanent consumption: the lock is removed
// without returning its quantity. It fails with ErrLockNotFound when the
// lock is absent or its TTL has passed, even if the sweep has not run yet;
// in that case the quantity has been (or will be) restored and the caller
// must fail the purchase.
func (s *ReservationService) Commit(ctx context.Context, lockID string) (domain.Lock, error) {
	lock, ok := s.locks.Take(lockID, s.clock.Now())
	if !ok {
		return domain.Lock{}, domain.ErrLockNotFound
	}

	s.log.Info("ticket lock committed",
		"lock_id", lockID,
		"event_id", lock.EventID,
		"ticket_type", lock.TicketType,
		"quantity", lock.Quantity,
		"holder", lock.Holder,
	)
	return lock, nil
}

// RunSweeper releases expired locks on a fixed interval until the context
// is canceled.
func (s *ReservationService) RunSweeper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("lock sweeper stopping")
			return nil
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep releases every expired lock exactly as Unlock would. A failed
// restore puts the lock back so the next pass retries it.
func (s *ReservationService) Sweep(ctx context.Context) {
	expired := s.locks.TakeExpired(s.clock.Now())
	for _, lock := range expired {
		if _, err := s.inv.AdjustAvailable(ctx, lock.EventID, lock.TicketType, lock.Quantity); err != nil {
			s.locks.Insert(lock)
			s.log.Error("sweep failed to restore inventory", "lock_id", lock.ID, "err", err)
			continue
		}
		s.log.Info("expired lock swept", "lock_id", lock.ID, "quantity", lock.Quantity)
	}
}
