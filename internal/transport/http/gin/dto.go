package httpgin

import (
	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/service/cart"
	"github.com/kirinyoku/tix-client/internal/service/dashboard"
	"github.com/shopspring/decimal"
)

// Envelope is the body of every response, mirroring the backend's shape.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

func ok(v any) Envelope { return Envelope{Success: true, Data: v} }

func failure(msg string) Envelope {
	return Envelope{Success: false, Error: &ErrorBody{Message: msg}}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AddCartItemRequest struct {
	EventID string `json:"eventId" binding:"required"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type UpdateStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

type CartView struct {
	Items        []domain.CartItem     `json:"items"`
	ItemsCount   int                   `json:"itemsCount"`
	UniqueEvents int                   `json:"uniqueEvents"`
	TotalPrice   decimal.Decimal       `json:"totalPrice"`
	Validation   domain.CartValidation `json:"validation"`
	Status       cart.Status           `json:"status"`
}

type OrdersView struct {
	Orders []domain.Order `json:"orders"`
	Status service.Status `json:"status"`
}

// SessionView never carries the access token.
type SessionView struct {
	LoggedIn bool            `json:"loggedIn"`
	UserID   string          `json:"userId,omitempty"`
	Email    string          `json:"email,omitempty"`
	Role     domain.UserRole `json:"role,omitempty"`
	IsStaff  bool            `json:"isStaff"`
}

// DashboardView is the admin overview. Errors maps each section that failed
// to load onto its user message; the other sections are current.
type DashboardView struct {
	dashboard.Snapshot
	Errors map[dashboard.Section]string `json:"errors,omitempty"`
}

type CheckoutResponse struct {
	Order domain.Order `json:"order"`
}
