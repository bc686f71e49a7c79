package domain

import "time"

// Lock is a temporary hold against a ticket type's available quantity. It is
// immutable once created; it leaves the lock table either through a commit
// (quantity stays consumed) or through an unlock or expiry (quantity is
// returned to the inventory).
type Lock struct {
	ID         string
	EventID    string
	TicketType string
	Quantity   int
	Holder     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the lock's TTL has passed at the given instant.
func (l Lock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
