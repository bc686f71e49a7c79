package application

import (
	"context"
	"encoding/json"

	"github.com/eventhive/eventhive/internal/orders/domain"
)

type OrderRepository interface {
	// Create persists the order. The returned bool is false when an order
	// with the same ID and identical contents already existed (idempotent
	// retry); a same-ID order with different contents fails with
	// domain.ErrOrderConflict.
	Create(ctx context.Context, o domain.Order) (domain.Order, bool, error)
	ListByUser(ctx context.Context, username string) ([]domain.Order, error)
	UsernamesByEvent(ctx context.Context, eventID string) ([]string, error)
	EventIDsByUser(ctx context.Context, username string) ([]string, error)
}

// Publisher broadcasts a payload to all subscriber groups. Implementations
// bound the attempt; callers treat failure as loggable, never fatal.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// EventsClient fetches event details from the events service for order
// enrichment.
type EventsClient interface {
	GetEvent(ctx context.Context, id string) (json.RawMessage, error)
}
