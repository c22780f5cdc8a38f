package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type EventHistoryAction string

const (
	EventCreated     EventHistoryAction = "created"
	EventUpdated     EventHistoryAction = "updated"
	EventSoftDeleted EventHistoryAction = "soft_deleted"
	EventRestored    EventHistoryAction = "restored"
	EventHardDeleted EventHistoryAction = "hard_deleted"
)

type EventHistoryEntry struct {
	ID        string             `json:"id"`
	EventID   string             `json:"eventId"`
	User      *UserRef           `json:"user"`
	Action    EventHistoryAction `json:"action"`
	Before    json.RawMessage    `json:"before,omitempty"`
	After     json.RawMessage    `json:"after,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

type OrderHistoryAction string

const (
	OrderCreated       OrderHistoryAction = "created"
	OrderUpdated       OrderHistoryAction = "updated"
	OrderStatusChanged OrderHistoryAction = "status_changed"
	OrderCancelled     OrderHistoryAction = "cancelled"
)

type OrderHistoryItem struct {
	EventID   string          `json:"eventId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

type OrderHistorySnapshot struct {
	Items []OrderHistoryItem `json:"items"`
}

type OrderHistoryEntry struct {
	ID         string                `json:"id"`
	OrderID    string                `json:"orderId"`
	User       *UserRef              `json:"user"`
	Action     OrderHistoryAction    `json:"action"`
	FromStatus *OrderStatus          `json:"fromStatus"`
	ToStatus   *OrderStatus          `json:"toStatus"`
	Before     *OrderHistorySnapshot `json:"before"`
	After      *OrderHistorySnapshot `json:"after"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// CommentHistoryEntry is kept opaque; the server's shape is not stable.
type CommentHistoryEntry = json.RawMessage
