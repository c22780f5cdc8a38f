package cart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/metrics"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/state"
)

const (
	msgDeleted      = "Cannot add deleted event to cart."
	msgNotFound     = "Item not found in cart."
	msgEmpty        = "Your cart is empty."
	msgAllAvailable = "You have added all available tickets for this event."
)

// Catalog supplies fresh event data for revalidation.
type Catalog interface {
	LoadAll(ctx context.Context) ([]domain.Event, error)
}

// OrderPlacer turns cart lines into an order.
type OrderPlacer interface {
	CreateFromCart(ctx context.Context, items []domain.CartItem) (domain.Order, error)
}

// Status is a point-in-time copy of the cart flags.
type Status struct {
	Error                string `json:"error,omitempty"`
	Warning              string `json:"warning,omitempty"`
	LastOperationSuccess bool   `json:"lastOperationSuccess"`
	Operating            bool   `json:"operating"`
}

// Service validates every cart change against the availability carried by
// the line's event snapshot. opMu serialises operations so a check and its
// mutation are atomic; mu guards the flags only.
type Service struct {
	store   *state.CartStore
	catalog Catalog
	orders  OrderPlacer
	logger  *slog.Logger

	opMu sync.Mutex

	mu        sync.Mutex
	err       string
	warning   string
	success   bool
	operating bool
}

func New(store *state.CartStore, catalog Catalog, orders OrderPlacer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:   store,
		catalog: catalog,
		orders:  orders,
		logger:  logger.With("service", "cart"),
	}
}

func (s *Service) Store() *state.CartStore { return s.store }

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Error: s.err, Warning: s.warning, LastOperationSuccess: s.success, Operating: s.operating}
}

func (s *Service) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

func (s *Service) ClearWarning() {
	s.mu.Lock()
	s.warning = ""
	s.mu.Unlock()
}

func (s *Service) ClearSuccess() {
	s.mu.Lock()
	s.success = false
	s.mu.Unlock()
}

// begin resets the flags for a new operation.
func (s *Service) begin() {
	s.mu.Lock()
	s.err = ""
	s.warning = ""
	s.success = false
	s.mu.Unlock()
}

// fail records msg and returns the error handed to the caller.
func (s *Service) fail(op, msg string, err error) error {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()

	s.logger.Warn("cart operation rejected", "op", op, "error", err)
	metrics.CartOperation(op, false)
	return &service.OpError{Op: op, Message: msg, Err: err}
}

// done marks success, raising the boundary warning when q reaches available.
func (s *Service) done(op string, q, available int) {
	s.mu.Lock()
	s.success = true
	if available >= 0 && q == available {
		s.warning = msgAllAvailable
	}
	s.mu.Unlock()
	metrics.CartOperation(op, true)
}

func (s *Service) warn(msg string) {
	s.mu.Lock()
	s.warning = msg
	s.mu.Unlock()
}

func (s *Service) setOperating(v bool) {
	s.mu.Lock()
	s.operating = v
	s.mu.Unlock()
}

func adjustedMessage(n int) string {
	return fmt.Sprintf("Cart adjusted: %d item(s) had availability issues.", n)
}

// Add puts one ticket of e in the cart. Availability is checked against e.
//
// Parameters:
//   - e: the event as currently known.
//
// Returns:
//   - error: cart.ErrEventDeleted for a deleted event, or *cart.AvailabilityError
//     when no ticket is left; both wrapped in *service.OpError.
func (s *Service) Add(e domain.Event) error {
	const op = "service.cart.Add"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.begin()

	if e.IsDeleted {
		return s.fail(op, msgDeleted, fmt.Errorf("%w: %s", ErrEventDeleted, e.ID))
	}

	requested := s.store.Quantity(e.ID) + 1
	if requested > e.AvailableTickets {
		return s.fail(op,
			fmt.Sprintf("Cannot add more tickets. Only %d available.", e.AvailableTickets),
			&AvailabilityError{EventID: e.ID, Requested: requested, Available: e.AvailableTickets})
	}

	s.store.AddItem(e)
	s.done(op, requested, e.AvailableTickets)
	s.logger.Debug("added to cart", "event_id", e.ID, "quantity", requested)
	return nil
}

func (s *Service) Increase(eventID string) error {
	const op = "service.cart.Increase"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.begin()

	it, found := s.store.Item(eventID)
	if !found {
		return s.fail(op, msgNotFound, fmt.Errorf("%w: %s", ErrItemNotFound, eventID))
	}

	requested := it.Quantity + 1
	available := it.Event.AvailableTickets
	if requested > available {
		return s.fail(op,
			fmt.Sprintf("Cannot add more tickets. Only %d available.", available),
			&AvailabilityError{EventID: eventID, Requested: requested, Available: available})
	}

	s.store.SetQuantity(eventID, requested)
	s.done(op, requested, available)
	return nil
}

// Decrease lowers the quantity by one; a line at 1 is removed.
func (s *Service) Decrease(eventID string) {
	const op = "service.cart.Decrease"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.begin()

	s.store.Decrease(eventID)
	s.done(op, 0, -1)
}

// SetQuantity sets an absolute quantity. q < 1 removes the line.
func (s *Service) SetQuantity(eventID string, q int) error {
	const op = "service.cart.SetQuantity"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.begin()

	if q < 1 {
		s.store.Remove(eventID)
		s.done(op, 0, -1)
		return nil
	}

	it, found := s.store.Item(eventID)
	if !found {
		return s.fail(op, msgNotFound, fmt.Errorf("%w: %s", ErrItemNotFound, eventID))
	}

	available := it.Event.AvailableTickets
	if q > available {
		return s.fail(op,
			fmt.Sprintf("Cannot add %d tickets. Only %d available.", q, available),
			&AvailabilityError{EventID: eventID, Requested: q, Available: available})
	}

	s.store.SetQuantity(eventID, q)
	s.done(op, q, available)
	return nil
}

func (s *Service) Remove(eventID string) {
	const op = "service.cart.Remove"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.begin()

	s.store.Remove(eventID)
	s.done(op, 0, -1)
}

func (s *Service) Clear() {
	const op = "service.cart.Clear"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.begin()

	s.store.Clear()
	s.done(op, 0, -1)
}

func (s *Service) Validate() domain.CartValidation { return s.store.Validate() }

func (s *Service) AreAllItemsAvailable() bool { return s.store.AreAllAvailable() }

func (s *Service) ItemsExceedingAvailability() []domain.CartItem {
	return s.store.ExceedingAvailability()
}

// FixAvailability clamps every line above its availability, removing sold
// out ones, and returns how many lines changed.
func (s *Service) FixAvailability() int {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.fixLocked()
}

// fixLocked must be called with s.opMu held.
func (s *Service) fixLocked() int {
	issues := s.store.ExceedingAvailability()
	for _, it := range issues {
		if it.Event.AvailableTickets <= 0 {
			s.store.Remove(it.Event.ID)
			s.logger.Info("removed sold out event from cart", "event_id", it.Event.ID)
			continue
		}
		s.store.SetQuantity(it.Event.ID, it.Event.AvailableTickets)
		s.logger.Info("clamped cart quantity", "event_id", it.Event.ID, "from", it.Quantity, "to", it.Event.AvailableTickets)
	}

	if len(issues) > 0 {
		s.warn(adjustedMessage(len(issues)))
	}
	return len(issues)
}

// RemoveUnavailable drops every sold out line and returns how many were removed.
func (s *Service) RemoveUnavailable() int {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	gone := s.store.Unavailable()
	for _, it := range gone {
		s.store.Remove(it.Event.ID)
	}
	if len(gone) > 0 {
		s.warn(fmt.Sprintf("Removed %d unavailable item(s) from cart.", len(gone)))
	}
	return len(gone)
}

// Revalidate refreshes every line's event snapshot from events, then fixes
// availability. Lines whose event is missing or deleted count as sold out.
// It returns the number of adjusted lines.
func (s *Service) Revalidate(events []domain.Event) int {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.revalidateLocked(events)
}

// revalidateLocked must be called with s.opMu held.
func (s *Service) revalidateLocked(events []domain.Event) int {
	byID := make(map[string]domain.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	items := s.store.Items()
	for i, it := range items {
		fresh, found := byID[it.Event.ID]
		if !found || fresh.IsDeleted {
			items[i].Event.AvailableTickets = 0
			continue
		}
		items[i].Event = fresh
	}
	s.store.SetItems(items)

	return s.fixLocked()
}

// Checkout revalidates the cart against freshly loaded events and places the
// order. When revalidation changes anything the order is not placed, so the
// user can review the adjusted cart. Once the order exists the cart is cleared
// and events are reloaded; a failed reload is only logged.
//
// Parameters:
//   - ctx: request-scoped context.
//
// Returns:
//   - domain.Order: the created order.
//   - error: cart.ErrEmptyCart, cart.ErrCartAdjusted, or the failure of loading
//     events or creating the order, wrapped in *service.OpError.
func (s *Service) Checkout(ctx context.Context) (domain.Order, error) {
	const op = "service.cart.Checkout"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.begin()

	if s.store.IsEmpty() {
		return domain.Order{}, s.fail(op, msgEmpty, ErrEmptyCart)
	}

	s.setOperating(true)
	defer s.setOperating(false)

	events, err := s.catalog.LoadAll(ctx)
	if err != nil {
		return domain.Order{}, s.fail(op, err.Error(), err)
	}

	if n := s.revalidateLocked(events); n > 0 {
		return domain.Order{}, s.fail(op, adjustedMessage(n), fmt.Errorf("%w: %d line(s)", ErrCartAdjusted, n))
	}

	o, err := s.orders.CreateFromCart(ctx, s.store.Items())
	if err != nil {
		return domain.Order{}, s.fail(op, err.Error(), err)
	}

	s.store.Clear()
	s.done(op, 0, -1)
	s.logger.Info("checkout complete", "order_id", o.ID)

	// Ticket counts changed on the server.
	if _, err := s.catalog.LoadAll(ctx); err != nil {
		s.logger.Warn("events reload after checkout failed", "op", op, "order_id", o.ID, "error", err)
	}
	return o, nil
}
