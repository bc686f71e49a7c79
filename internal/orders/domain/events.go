package domain

import "time"

// OrderCreated is the fanout notification emitted after an order is
// persisted. Delivery is best-effort and at-most-once per subscriber group;
// consumers must tolerate duplicates and gaps.
type OrderCreated struct {
	OrderID      string    `json:"order_id"`
	EventID      string    `json:"event_id"`
	TicketType   string    `json:"ticket_type"`
	Quantity     int       `json:"quantity"`
	Username     string    `json:"username"`
	CheckoutDate time.Time `json:"checkout_date"`
}
