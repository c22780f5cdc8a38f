package orders

import (
	"testing"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsDraft(t *testing.T) {
	o := domain.Order{Items: []domain.OrderItem{
		domain.NewOrderItem("a", "A", decimal.NewFromInt(10), 1),
	}}
	d := NewItemsDraft(o)

	d.Add(domain.Event{ID: "b", Title: "B", Price: decimal.RequireFromString("2.5")})
	d.Add(domain.Event{ID: "b", Title: "B", Price: decimal.RequireFromString("2.5")})
	d.Increase("a")
	assert.Equal(t, "25", d.Total().String())

	items := d.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "5", items[1].LineTotal.String())

	d.Decrease("a")
	d.Decrease("a")
	d.SetQuantity("missing", 3)
	assert.Equal(t, []domain.OrderItemInput{{EventID: "b", Quantity: 2}}, d.Inputs())

	d.Remove("b")
	assert.True(t, d.Total().IsZero())
	assert.Len(t, o.Items, 1)
}
