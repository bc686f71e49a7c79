package domain

import "time"

// Event is a ticketed event with one or more sellable ticket types.
type Event struct {
	ID          string
	Name        string
	Category    string
	Description string
	Location    string
	StartDate   time.Time
	EndDate     time.Time
	TicketTypes []TicketType
	CreatedAt   time.Time
}

// TicketType is one tier of tickets for an event. Available counts tickets
// neither held by an active lock nor consumed by a committed purchase;
// 0 <= Available <= Total holds at all times.
type TicketType struct {
	Name       string
	PriceCents int64
	Total      int
	Available  int
}
