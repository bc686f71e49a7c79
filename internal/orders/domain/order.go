package domain

import (
	"errors"
	"time"
)

// Order is the durable record of a completed purchase. It is written only
// after the ticket lock has been committed, and never mutated afterwards.
type Order struct {
	ID           string
	EventID      string
	TicketType   string
	Quantity     int
	Username     string
	CheckoutDate time.Time
	CreatedAt    time.Time
}

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderConflict is returned when an order ID is reused with different
	// contents. Re-sending the identical order is accepted as an idempotent
	// retry instead.
	ErrOrderConflict = errors.New("order id already used")
	// ErrEventNotFound is reported when the events service does not know the
	// event an order refers to.
	ErrEventNotFound = errors.New("event not found")
)
