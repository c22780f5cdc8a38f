package orders

import "errors"

var (
	ErrOrderFinal      = errors.New("order is in a final status")
	ErrStatusUnchanged = errors.New("order already has this status")
	ErrUseCancel       = errors.New("cancellation must use the cancel operation")
	ErrInvalidStatus   = errors.New("unknown order status")
	ErrEmptyOrder      = errors.New("order has no items")
)

var userMessages = map[error]string{
	ErrOrderFinal:      "This order is final and can no longer be changed.",
	ErrStatusUnchanged: "Order already has this status.",
	ErrUseCancel:       "Use cancel to cancel an order.",
	ErrInvalidStatus:   "Unknown order status.",
	ErrEmptyOrder:      "Order must contain at least one item.",
}
