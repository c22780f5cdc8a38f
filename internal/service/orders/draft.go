package orders

import (
	"slices"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/shopspring/decimal"
)

// ItemsDraft is a provisional copy of an order's lines for an editor. Line
// totals are recomputed on every change; the server's total replaces the
// provisional one once the edit is saved. A draft is not safe for concurrent use.
type ItemsDraft struct {
	items []domain.OrderItem
}

func NewItemsDraft(o domain.Order) *ItemsDraft {
	return &ItemsDraft{items: slices.Clone(o.Items)}
}

func (d *ItemsDraft) Items() []domain.OrderItem { return slices.Clone(d.items) }

func (d *ItemsDraft) index(eventID string) int {
	return slices.IndexFunc(d.items, func(it domain.OrderItem) bool { return it.EventID == eventID })
}

// SetQuantity sets the quantity of a line. q < 1 removes it.
func (d *ItemsDraft) SetQuantity(eventID string, q int) {
	i := d.index(eventID)
	if i < 0 {
		return
	}
	if q < 1 {
		d.items = slices.Delete(d.items, i, i+1)
		return
	}
	d.items[i].Quantity = q
	d.items[i] = d.items[i].Recalc()
}

func (d *ItemsDraft) Increase(eventID string) {
	if i := d.index(eventID); i >= 0 {
		d.SetQuantity(eventID, d.items[i].Quantity+1)
	}
}

func (d *ItemsDraft) Decrease(eventID string) {
	if i := d.index(eventID); i >= 0 {
		d.SetQuantity(eventID, d.items[i].Quantity-1)
	}
}

func (d *ItemsDraft) Remove(eventID string) { d.SetQuantity(eventID, 0) }

// Add appends a line for e at its current price, or bumps an existing one.
func (d *ItemsDraft) Add(e domain.Event) {
	if i := d.index(e.ID); i >= 0 {
		d.SetQuantity(e.ID, d.items[i].Quantity+1)
		return
	}
	d.items = append(d.items, domain.NewOrderItem(e.ID, e.Title, e.Price, 1))
}

// Total is the provisional sum of line totals.
func (d *ItemsDraft) Total() decimal.Decimal { return domain.ItemsTotal(d.items) }

// Inputs is the payload sent to update the order's items.
func (d *ItemsDraft) Inputs() []domain.OrderItemInput {
	out := make([]domain.OrderItemInput, 0, len(d.items))
	for _, it := range d.items {
		out = append(out, domain.OrderItemInput{EventID: it.EventID, Quantity: it.Quantity})
	}
	return out
}
