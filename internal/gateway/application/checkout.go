package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/eventhive/eventhive/pkg/clock"
)

// CheckoutService sequences a purchase on behalf of a buyer: reserve a
// hold, then convert it into a committed purchase plus an order record.
type CheckoutService struct {
	log    *slog.Logger
	events EventsGateway
	orders OrdersGateway
	clock  clock.Clock
}

func NewCheckoutService(log *slog.Logger, events EventsGateway, orders OrdersGateway, clk clock.Clock) *CheckoutService {
	return &CheckoutService{log: log, events: events, orders: orders, clock: clk}
}

// Reserve places a hold in the buyer's name. Inventory exhaustion
// propagates unchanged for the transport layer to map.
func (s *CheckoutService) Reserve(ctx context.Context, username, eventID, ticketType string, quantity int) (LockInfo, error) {
	return s.events.Lock(ctx, eventID, ticketType, quantity, username)
}

// Release gives a hold back. Releasing an expired or already-released hold
// succeeds; the buyer may race the expiry sweep.
func (s *CheckoutService) Release(ctx context.Context, lockID string) error {
	return s.events.Unlock(ctx, lockID)
}

// Checkout finalizes a purchase: commit the hold (consuming inventory for
// good), then write the order to the ledger. A hold that expired before
// commit surfaces as ErrCheckoutExpired. A ledger failure after a
// successful commit is the accepted inconsistency window: inventory is
// consumed with no order record, so the gap is logged with everything
// reconciliation needs and the buyer gets an error.
func (s *CheckoutService) Checkout(ctx context.Context, lockID string) (OrderInfo, error) {
	lock, err := s.events.Commit(ctx, lockID)
	if err != nil {
		if errors.Is(err, ErrLockNotFound) {
			return OrderInfo{}, ErrCheckoutExpired
		}
		return OrderInfo{}, fmt.Errorf("commit lock: %w", err)
	}

	order := OrderInfo{
		OrderID:      uuid.NewString(),
		EventID:      lock.EventID,
		TicketType:   lock.TicketType,
		Quantity:     lock.Quantity,
		Username:     lock.Username,
		CheckoutDate: s.clock.Now(),
	}
	created, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		s.log.Error("order write failed after commit, inventory consumed without ledger record",
			"lock_id", lockID,
			"order_id", order.OrderID,
			"event_id", order.EventID,
			"ticket_type", order.TicketType,
			"quantity", order.Quantity,
			"username", order.Username,
			"err", err,
		)
		return OrderInfo{}, fmt.Errorf("record order: %w", err)
	}
	return created, nil
}
