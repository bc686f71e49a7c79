package application

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors the downstream clients translate wire responses into.
var (
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrLockNotFound          = errors.New("lock not found")
	ErrCheckoutExpired       = errors.New("checkout session expired")
	ErrEventNotFound         = errors.New("event not found")
	ErrInvalidRequest        = errors.New("invalid request")
)

// LockInfo mirrors the lock payload returned by the events service.
type LockInfo struct {
	LockID     string    `json:"lock_id"`
	EventID    string    `json:"event_id"`
	TicketType string    `json:"ticket_type"`
	Quantity   int       `json:"quantity"`
	Username   string    `json:"username"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// OrderInfo mirrors the order payload exchanged with the orders service.
type OrderInfo struct {
	OrderID      string    `json:"order_id"`
	EventID      string    `json:"event_id"`
	TicketType   string    `json:"ticket_type"`
	Quantity     int       `json:"quantity"`
	Username     string    `json:"username"`
	CheckoutDate time.Time `json:"checkout_date"`
}

// EventInfo is the slice of an event the next-event read model needs.
type EventInfo struct {
	EventID   string
	Name      string
	StartDate time.Time
}

// EventsGateway is the gateway's client for the events service. Proxy
// relays a request verbatim and returns the downstream status and body;
// the typed methods drive the reservation protocol.
type EventsGateway interface {
	Proxy(ctx context.Context, method, path string, body io.Reader) (int, []byte, error)
	GetEventInfo(ctx context.Context, id string) (EventInfo, error)
	Lock(ctx context.Context, eventID, ticketType string, quantity int, username string) (LockInfo, error)
	Unlock(ctx context.Context, lockID string) error
	Commit(ctx context.Context, lockID string) (LockInfo, error)
}

// OrdersGateway is the gateway's client for the orders service.
type OrdersGateway interface {
	Proxy(ctx context.Context, method, path string, body io.Reader) (int, []byte, error)
	CreateOrder(ctx context.Context, o OrderInfo) (OrderInfo, error)
}

// NextEvent is the cached "soonest upcoming purchased event" per user.
type NextEvent struct {
	EventID   string    `json:"event_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
}

// NextEventStore persists the next-event read model.
type NextEventStore interface {
	Get(ctx context.Context, username string) (NextEvent, bool, error)
	Set(ctx context.Context, username string, ev NextEvent) error
}
