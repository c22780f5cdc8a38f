package state

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCart(t *testing.T) (*CartStore, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return NewCartStore(mem, testOpts()), mem
}

func stored(t *testing.T, mem *storage.Memory) []map[string]any {
	t.Helper()
	raw, ok, err := mem.Get(context.Background(), storage.KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestCartStore_AddPrependsAndIncrements(t *testing.T) {
	c, mem := newCart(t)

	c.AddItem(ev("a"))
	c.AddItem(ev("b"))
	c.AddItem(ev("a"))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Event.ID)
	assert.Equal(t, 2, c.Quantity("a"))
	assert.Equal(t, 3, c.ItemsCount())
	assert.True(t, decimal.NewFromInt(30).Equal(c.TotalPrice()))

	recs := stored(t, mem)
	require.Len(t, recs, 2)
	assert.EqualValues(t, testNow.UnixMilli(), recs[0]["addedAt"])
}

func TestCartStore_QuantityBoundaries(t *testing.T) {
	c, mem := newCart(t)
	c.AddItem(ev("a"))

	c.Decrease("a")
	assert.False(t, c.IsInCart("a"))

	c.AddItem(ev("a"))
	c.SetQuantity("a", 4)
	assert.Equal(t, 4, c.Quantity("a"))
	c.SetQuantity("a", 0)
	assert.True(t, c.IsEmpty())
	assert.Empty(t, stored(t, mem))

	c.Decrease("missing")
	assert.True(t, c.IsEmpty())
}

func TestCartStore_LoadRepairsEntries(t *testing.T) {
	c, mem := newCart(t)
	blob := `[
		{"event":{"id":"a","title":"A","price":10,"availableTickets":5},"addedAt":1700000000000,"quantity":-5},
		{"event":{"id":"b","title":"B","price":"2.5"},"addedAt":"2024-01-02T03:04:05Z","quantity":"lots"},
		{"event":{"title":"no id"},"quantity":1},
		{"event":{"id":"a"},"quantity":9},
		{"event":{"id":"c"},"quantity":2.7},
		{"event":{"id":"d","price":1,"availableTickets":5},"quantity":1e20}
	]`
	require.NoError(t, mem.Set(context.Background(), storage.KeyCart, blob))

	require.NoError(t, c.Load(context.Background()))

	items := c.Items()
	require.Len(t, items, 4)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, int64(1700000000000), items[0].AddedAt.UnixMilli())
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, 2024, items[1].AddedAt.Year())
	assert.Equal(t, 2, items[2].Quantity)
	assert.Equal(t, testNow, items[2].AddedAt)
	assert.Equal(t, math.MaxInt32, items[3].Quantity)
	assert.True(t, items[3].Total().IsPositive())
}

func TestCartStore_LoadCorruptBlobClears(t *testing.T) {
	c, mem := newCart(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, storage.KeyCart, "{not json"))

	require.NoError(t, c.Load(ctx))

	assert.True(t, c.IsEmpty())
	_, ok, err := mem.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCartStore_ValidateAndRefresh(t *testing.T) {
	c, _ := newCart(t)
	c.AddItem(ev("a", func(e *domain.Event) { e.AvailableTickets = 1 }))
	c.SetQuantity("a", 3)
	c.AddItem(ev("b"))

	v := c.Validate()
	assert.False(t, v.Valid)
	require.Len(t, v.Issues, 1)
	assert.Equal(t, domain.AvailabilityIssue{EventID: "a", EventTitle: "Event a", Requested: 3, Available: 1}, v.Issues[0])

	c.RefreshEvent(ev("a", func(e *domain.Event) { e.AvailableTickets = 10 }))
	assert.True(t, c.AreAllAvailable())
	assert.Equal(t, 3, c.Quantity("a"))
}

func TestCartStore_ClearRemovesKey(t *testing.T) {
	c, mem := newCart(t)
	c.AddItem(ev("a"))
	rev := c.Revision()

	c.Clear()

	assert.Greater(t, c.Revision(), rev)
	_, ok, _ := mem.Get(context.Background(), storage.KeyCart)
	assert.False(t, ok)
}
