package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusPaid       OrderStatus = "paid"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusPaid,
	StatusCompleted,
	StatusCancelled,
	StatusRefunded,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

type OrderItem struct {
	EventID   string          `json:"eventId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

func NewOrderItem(eventID, title string, unitPrice decimal.Decimal, quantity int) OrderItem {
	it := OrderItem{EventID: eventID, Title: title, UnitPrice: unitPrice, Quantity: quantity}
	return it.Recalc()
}

// Recalc returns it with LineTotal recomputed from UnitPrice and Quantity.
func (it OrderItem) Recalc() OrderItem {
	it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
	return it
}

// ItemsTotal sums the line totals of items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}

type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	UserEmail  string          `json:"userEmail,omitempty"`
	UserRole   UserRole        `json:"userRole,omitempty"`
	Items      []OrderItem     `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
}

// Tickets returns the sum of item quantities.
func (o Order) Tickets() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

func (o Order) Clone() Order {
	cp := o
	cp.Items = append([]OrderItem(nil), o.Items...)
	if o.UpdatedAt != nil {
		t := *o.UpdatedAt
		cp.UpdatedAt = &t
	}
	return cp
}

// OrderItemInput is the wire shape for ordering a quantity of one event.
type OrderItemInput struct {
	EventID  string `json:"eventId"`
	Quantity int    `json:"quantity"`
}

// OrderUpdate is a partial order update. Nil fields are not sent. A non-nil
// empty Items is sent as [] and removes every line.
type OrderUpdate struct {
	Status *OrderStatus
	Items  []OrderItemInput
}

func (u OrderUpdate) MarshalJSON() ([]byte, error) {
	out := struct {
		Status *OrderStatus      `json:"status,omitempty"`
		Items  *[]OrderItemInput `json:"items,omitempty"`
	}{Status: u.Status}
	if u.Items != nil {
		out.Items = &u.Items
	}
	return json.Marshal(out)
}
