package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventhive/eventhive/internal/orders/domain"
	"github.com/eventhive/eventhive/pkg/clock"
)

const publishTimeout = 3 * time.Second

type Service struct {
	log    *slog.Logger
	repo   OrderRepository
	pub    Publisher
	events EventsClient
	clock  clock.Clock
}

func NewService(log *slog.Logger, repo OrderRepository, pub Publisher, events EventsClient, clk clock.Clock) *Service {
	return &Service{log: log, repo: repo, pub: pub, events: events, clock: clk}
}

type CreateOrderInput struct {
	OrderID      string
	EventID      string
	TicketType   string
	Quantity     int
	Username     string
	CheckoutDate time.Time
}

// Create persists the order and then broadcasts an OrderCreated
// notification. The broadcast is fire-and-forget: inventory was already
// consumed by the lock commit, so a failed publish is logged and swallowed
// rather than failing the purchase.
func (s *Service) Create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	o := domain.Order{
		ID:           in.OrderID,
		EventID:      in.EventID,
		TicketType:   in.TicketType,
		Quantity:     in.Quantity,
		Username:     in.Username,
		CheckoutDate: in.CheckoutDate,
		CreatedAt:    s.clock.Now(),
	}

	o, created, err := s.repo.Create(ctx, o)
	if err != nil {
		return domain.Order{}, err
	}
	if !created {
		// Idempotent retry; the first write already published.
		return o, nil
	}

	s.notify(ctx, o)
	return o, nil
}

func (s *Service) notify(ctx context.Context, o domain.Order) {
	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:      o.ID,
		EventID:      o.EventID,
		TicketType:   o.TicketType,
		Quantity:     o.Quantity,
		Username:     o.Username,
		CheckoutDate: o.CheckoutDate,
	})
	if err != nil {
		s.log.Error("marshal order notification", "order_id", o.ID, "err", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.pub.Publish(pubCtx, o.ID, payload); err != nil {
		s.log.Error("order notification failed", "order_id", o.ID, "err", err)
		return
	}
	s.log.Info("order notification published", "order_id", o.ID)
}

// EnrichedOrder pairs an order with the event document it refers to, the
// shape the storefront renders on a user's order history page.
type EnrichedOrder struct {
	Order domain.Order
	Event json.RawMessage
}

func (s *Service) ListByUser(ctx context.Context, username string) ([]EnrichedOrder, error) {
	orders, err := s.repo.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedOrder, 0, len(orders))
	for _, o := range orders {
		ev, err := s.events.GetEvent(ctx, o.EventID)
		if err != nil {
			return nil, fmt.Errorf("fetch event %s: %w", o.EventID, err)
		}
		enriched = append(enriched, EnrichedOrder{Order: o, Event: ev})
	}
	return enriched, nil
}

func (s *Service) UsernamesByEvent(ctx context.Context, eventID string) ([]string, error) {
	return s.repo.UsernamesByEvent(ctx, eventID)
}

func (s *Service) EventIDsByUser(ctx context.Context, username string) ([]string, error) {
	return s.repo.EventIDsByUser(ctx, username)
}
