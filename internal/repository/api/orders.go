package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/repository"
)

type OrderRepo struct {
	c *Client
}

// List returns the caller's orders (all orders for staff), newest first.
func (r *OrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	const op = "api.OrderRepo.List"

	var dtos []orderDTO
	if err := r.c.do(ctx, http.MethodGet, "/orders", nil, &dtos, "Failed to load orders"); err != nil {
		return nil, wrap(op, err)
	}

	now := r.c.now()
	out := make([]domain.Order, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, mapOrder(d, now))
	}
	sortByTime(out, func(o domain.Order) time.Time { return o.CreatedAt }, true)

	return out, nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	const op = "api.OrderRepo.Get"

	var dto orderDTO
	if err := r.c.do(ctx, http.MethodGet, "/orders/"+pathID(id), nil, &dto, "Failed to load order"); err != nil {
		return domain.Order{}, wrap(op, err)
	}

	return mapOrder(dto, r.c.now()), nil
}

func (r *OrderRepo) Create(ctx context.Context, items []domain.OrderItemInput) (domain.Order, error) {
	const op = "api.OrderRepo.Create"

	var dto orderDTO
	body := struct {
		Items []domain.OrderItemInput `json:"items"`
	}{Items: items}
	if err := r.c.do(ctx, http.MethodPost, "/orders", body, &dto, "Failed to create order"); err != nil {
		return domain.Order{}, wrap(op, err)
	}

	return mapOrder(dto, r.c.now()), nil
}

// Update sends a partial update. The returned order carries the server's
// authoritative total.
func (r *OrderRepo) Update(ctx context.Context, id string, upd domain.OrderUpdate) (domain.Order, error) {
	const op = "api.OrderRepo.Update"

	var dto orderDTO
	if err := r.c.do(ctx, http.MethodPut, "/orders/"+pathID(id), upd, &dto, "Failed to update order"); err != nil {
		return domain.Order{}, wrap(op, err)
	}

	return mapOrder(dto, r.c.now()), nil
}

// Cancel uses the dedicated endpoint so the server restores inventory.
func (r *OrderRepo) Cancel(ctx context.Context, id string) (domain.Order, error) {
	const op = "api.OrderRepo.Cancel"

	var data struct {
		Message string    `json:"message"`
		Order   *orderDTO `json:"order"`
	}
	path := "/orders/" + pathID(id) + "/cancel"
	if err := r.c.do(ctx, http.MethodPatch, path, struct{}{}, &data, "Failed to cancel order"); err != nil {
		return domain.Order{}, wrap(op, err)
	}

	if data.Order == nil {
		return domain.Order{}, wrap(op, &Error{
			Status:  http.StatusOK,
			Message: "Failed to cancel order",
			Method:  http.MethodPatch,
			URL:     r.c.baseURL + path,
			Kind:    repository.ErrUnexpected,
		})
	}

	return mapOrder(*data.Order, r.c.now()), nil
}

func (r *OrderRepo) History(ctx context.Context, id string) ([]domain.OrderHistoryEntry, error) {
	const op = "api.OrderRepo.History"

	var dtos []orderHistoryDTO
	path := "/orders/" + pathID(id) + "/history"
	if err := r.c.do(ctx, http.MethodGet, path, nil, &dtos, "Failed to load order history"); err != nil {
		return nil, wrap(op, err)
	}

	out := make([]domain.OrderHistoryEntry, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, mapOrderHistory(d))
	}
	sortByTime(out, func(h domain.OrderHistoryEntry) time.Time { return h.CreatedAt }, false)

	return out, nil
}
