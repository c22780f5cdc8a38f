package orders

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/repository/api"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/service/errmsg"
	"github.com/kirinyoku/tix-client/internal/state"
)

// Gateway is the remote order API.
type Gateway interface {
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	Create(ctx context.Context, items []domain.OrderItemInput) (domain.Order, error)
	Update(ctx context.Context, id string, upd domain.OrderUpdate) (domain.Order, error)
	Cancel(ctx context.Context, id string) (domain.Order, error)
	History(ctx context.Context, id string) ([]domain.OrderHistoryEntry, error)
}

// Viewer reports the privileges of the signed-in user.
type Viewer interface {
	IsStaff() bool
}

type Service struct {
	gw     Gateway
	store  *state.OrderStore
	viewer Viewer
	run    service.Runner
}

func New(gw Gateway, store *state.OrderStore, viewer Viewer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		gw:     gw,
		store:  store,
		viewer: viewer,
		run: service.Runner{
			Flags:     &service.Flags{},
			Logger:    logger.With("service", "orders"),
			Overrides: errmsg.Orders.With(userMessages),
		},
	}
}

func (s *Service) Store() *state.OrderStore { return s.store }

func (s *Service) Status() service.Status { return s.run.Flags.Status() }
func (s *Service) ClearError()            { s.run.Flags.ClearError() }
func (s *Service) ClearSuccess()          { s.run.Flags.ClearSuccess() }

// CanModify reports whether an order in status st may still change. Final
// statuses are never modifiable, whatever the role.
func CanModify(st domain.OrderStatus, staff bool) bool {
	return staff && !st.IsTerminal()
}

func (s *Service) staff() bool { return s.viewer != nil && s.viewer.IsStaff() }

func (s *Service) CanChangeStatus(o domain.Order) bool { return CanModify(o.Status, s.staff()) }
func (s *Service) CanCancel(o domain.Order) bool       { return CanModify(o.Status, s.staff()) }
func (s *Service) CanEditItems(o domain.Order) bool    { return CanModify(o.Status, s.staff()) }

// guard rejects changes to an order the store already knows to be final.
func (s *Service) guard(id string) error {
	if o, ok := s.store.Lookup(id); ok && o.Status.IsTerminal() {
		return ErrOrderFinal
	}
	return nil
}

// LoadOrders replaces the collection with the orders visible to the user.
//
// Parameters:
//   - ctx: request-scoped context.
//
// Returns:
//   - []domain.Order: the loaded orders, newest first.
//   - error: *service.OpError carrying the user message on failure.
func (s *Service) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	const op = "service.orders.LoadOrders"

	return service.Do(ctx, &s.run, op, service.Load, func(ctx context.Context) ([]domain.Order, error) {
		orders, err := s.gw.List(ctx)
		if err != nil {
			return nil, err
		}
		s.store.SetOrders(orders)
		return s.store.Orders(), nil
	})
}

// LoadIfNeeded loads orders only when the collection is empty. It reports
// whether a request was made.
func (s *Service) LoadIfNeeded(ctx context.Context) (bool, error) {
	if !s.store.IsEmpty() {
		return false, nil
	}
	_, err := s.LoadOrders(ctx)
	return true, err
}

func (s *Service) LoadSingle(ctx context.Context, id string) (domain.Order, error) {
	const op = "service.orders.LoadSingle"

	return service.Do(ctx, &s.run, op, service.LoadSingle, func(ctx context.Context) (domain.Order, error) {
		o, err := s.gw.Get(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		s.store.SetSingle(o)
		return o, nil
	})
}

// CreateFromCart places an order for the given cart lines. Every attempt
// carries a fresh idempotency key.
//
// Parameters:
//   - ctx: request-scoped context.
//   - items: cart lines; only event id and quantity are sent.
//
// Returns:
//   - domain.Order: the created order with server-computed totals.
//   - error: orders.ErrEmptyOrder when items is empty, or the classified remote failure.
func (s *Service) CreateFromCart(ctx context.Context, items []domain.CartItem) (domain.Order, error) {
	const op = "service.orders.CreateFromCart"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Order, error) {
		if len(items) == 0 {
			return domain.Order{}, ErrEmptyOrder
		}

		payload := make([]domain.OrderItemInput, 0, len(items))
		for _, it := range items {
			payload = append(payload, domain.OrderItemInput{EventID: it.Event.ID, Quantity: max(1, it.Quantity)})
		}

		key := uuid.NewString()
		o, err := s.gw.Create(api.WithIdempotencyKey(ctx, key), payload)
		if err != nil {
			return domain.Order{}, err
		}
		s.store.Upsert(o)
		s.run.Logger.Info("order created", "id", o.ID, "items", len(payload), "idempotency_key", key)
		return o, nil
	})
}

// UpdateStatus moves an order to st. Cancellation is rejected here and must
// go through Cancel.
func (s *Service) UpdateStatus(ctx context.Context, id string, st domain.OrderStatus) (domain.Order, error) {
	const op = "service.orders.UpdateStatus"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Order, error) {
		if !st.Valid() {
			return domain.Order{}, ErrInvalidStatus
		}
		if st == domain.StatusCancelled {
			return domain.Order{}, ErrUseCancel
		}
		if err := s.guard(id); err != nil {
			return domain.Order{}, err
		}
		if cur, ok := s.store.Lookup(id); ok && cur.Status == st {
			return domain.Order{}, ErrStatusUnchanged
		}
		return s.apply(ctx, id, domain.OrderUpdate{Status: &st})
	})
}

// UpdateItems replaces the lines of an order. An empty list removes every
// line. The stored total is the one the server returns.
func (s *Service) UpdateItems(ctx context.Context, id string, items []domain.OrderItemInput) (domain.Order, error) {
	const op = "service.orders.UpdateItems"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Order, error) {
		if err := s.guard(id); err != nil {
			return domain.Order{}, err
		}
		if items == nil {
			items = []domain.OrderItemInput{}
		}
		return s.apply(ctx, id, domain.OrderUpdate{Items: items})
	})
}

// Update sends a combined status and items change.
func (s *Service) Update(ctx context.Context, id string, upd domain.OrderUpdate) (domain.Order, error) {
	const op = "service.orders.Update"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Order, error) {
		if upd.Status != nil {
			if !upd.Status.Valid() {
				return domain.Order{}, ErrInvalidStatus
			}
			if *upd.Status == domain.StatusCancelled {
				return domain.Order{}, ErrUseCancel
			}
		}
		if err := s.guard(id); err != nil {
			return domain.Order{}, err
		}
		return s.apply(ctx, id, upd)
	})
}

func (s *Service) apply(ctx context.Context, id string, upd domain.OrderUpdate) (domain.Order, error) {
	o, err := s.gw.Update(ctx, id, upd)
	if err != nil {
		return domain.Order{}, err
	}
	s.store.Upsert(o)
	return o, nil
}

// Cancel cancels an order through the dedicated endpoint, which also
// returns its tickets to inventory.
func (s *Service) Cancel(ctx context.Context, id string) (domain.Order, error) {
	const op = "service.orders.Cancel"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Order, error) {
		if err := s.guard(id); err != nil {
			return domain.Order{}, err
		}
		o, err := s.gw.Cancel(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		s.store.Upsert(o)
		return o, nil
	})
}

func (s *Service) History(ctx context.Context, id string) ([]domain.OrderHistoryEntry, error) {
	const op = "service.orders.History"

	entries, err := s.gw.History(ctx, id)
	if err != nil {
		return nil, s.run.Fail(op, err)
	}
	return entries, nil
}

func (s *Service) ClearSingle() { s.store.ClearSingle() }

// ClearAllForUser drops the user's orders, as on logout.
func (s *Service) ClearAllForUser(userID string) int {
	return s.store.RemoveForUser(userID)
}

func (s *Service) ClearAll() {
	s.store.Clear()
	s.run.Flags.ClearError()
	s.run.Flags.ClearSuccess()
}
