package domain

import "errors"

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrTicketTypeNotFound    = errors.New("ticket type not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrLockNotFound          = errors.New("lock not found")
)
