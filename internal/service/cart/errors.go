package cart

import (
	"errors"
	"fmt"
)

var (
	ErrEventDeleted = errors.New("event is deleted")
	ErrItemNotFound = errors.New("item not in cart")
	ErrEmptyCart    = errors.New("cart is empty")
	ErrCartAdjusted = errors.New("cart was adjusted to availability")
)

// AvailabilityError is returned when a quantity exceeds the tickets left.
type AvailabilityError struct {
	EventID   string
	Requested int
	Available int
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("event %s: requested %d, only %d available", e.EventID, e.Requested, e.Available)
}
