package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	Event    Event     `json:"event"`
	AddedAt  time.Time `json:"addedAt"`
	Quantity int       `json:"quantity"`
}

// Total is the event price multiplied by the quantity held.
func (c CartItem) Total() decimal.Decimal {
	return c.Event.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

func (c CartItem) Clone() CartItem {
	cp := c
	cp.Event = c.Event.Clone()
	return cp
}

// AvailabilityIssue describes a cart line whose quantity exceeds stock.
type AvailabilityIssue struct {
	EventID    string `json:"eventId"`
	EventTitle string `json:"eventTitle"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
}

type CartValidation struct {
	Valid  bool                `json:"valid"`
	Issues []AvailabilityIssue `json:"issues"`
}
