package state

import (
	"testing"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(id, user string, st domain.OrderStatus, total string, age time.Duration, items ...domain.OrderItem) domain.Order {
	return domain.Order{
		ID:         id,
		UserID:     user,
		UserEmail:  user + "@example.com",
		Status:     st,
		TotalPrice: decimal.RequireFromString(total),
		CreatedAt:  testNow.Add(-age),
		Items:      items,
	}
}

func TestOrderStore_StatisticsZeroSafe(t *testing.T) {
	s := NewOrderStore(testOpts())
	assert.True(t, s.Statistics().AverageOrderValue.IsZero())

	s.SetOrders([]domain.Order{
		order("o1", "u1", domain.StatusPending, "10", time.Hour),
		order("o2", "u1", domain.StatusCancelled, "20", time.Hour),
	})
	st := s.Statistics()
	assert.True(t, st.AverageOrderValue.IsZero())
	assert.True(t, st.TotalRevenue.IsZero())
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Cancelled)
}

func TestOrderStore_RevenueCountsCompletedOnly(t *testing.T) {
	s := NewOrderStore(testOpts())
	s.SetOrders([]domain.Order{
		order("o1", "u1", domain.StatusCompleted, "30", time.Hour,
			domain.NewOrderItem("e1", "A", decimal.NewFromInt(10), 3)),
		order("o2", "u2", domain.StatusCompleted, "10", time.Hour,
			domain.NewOrderItem("e1", "A", decimal.NewFromInt(10), 1)),
		order("o3", "u1", domain.StatusPaid, "50", time.Hour,
			domain.NewOrderItem("e1", "A", decimal.NewFromInt(10), 5)),
	})

	assert.True(t, decimal.NewFromInt(40).Equal(s.TotalRevenue()))
	assert.True(t, decimal.NewFromInt(30).Equal(s.RevenueForUser("u1")))
	assert.Equal(t, 4, s.TicketsSoldForEvent("e1"))
	assert.True(t, decimal.NewFromInt(20).Equal(s.Statistics().AverageOrderValue))
	assert.Len(t, s.ForEvent("e1"), 3)
	assert.True(t, s.HasUserCompletedOrders("u2"))
	assert.False(t, s.HasUserOrdered("nobody"))
	assert.Len(t, s.ByUserEmail("U1@EXAMPLE.COM"), 2)
}

func TestOrderStore_ServerTotalsOverwrite(t *testing.T) {
	s := NewOrderStore(testOpts())
	s.SetOrders([]domain.Order{order("o1", "u1", domain.StatusPending, "100", time.Hour)})

	s.Upsert(order("o1", "u1", domain.StatusPending, "87.50", time.Hour))

	got, ok := s.ByID("o1")
	require.True(t, ok)
	assert.Equal(t, "87.5", got.TotalPrice.String())
	assert.Equal(t, 1, s.Total())
}

func TestOrderStore_RemoveForUserClearsFocus(t *testing.T) {
	s := NewOrderStore(testOpts())
	s.SetOrders([]domain.Order{
		order("o1", "u1", domain.StatusPending, "1", time.Hour),
		order("o2", "u2", domain.StatusPending, "1", time.Hour),
	})
	s.SetSingle(order("o1", "u1", domain.StatusPending, "1", time.Hour))

	assert.Equal(t, 1, s.RemoveForUser("u1"))
	assert.False(t, s.HasSingle())
	assert.Equal(t, 1, s.Total())
}

func TestOrderStore_LookupFallsBackToFocus(t *testing.T) {
	s := NewOrderStore(testOpts())
	s.SetSingle(order("o9", "u1", domain.StatusPaid, "1", time.Hour))
	s.SetOrders(nil)

	o, ok := s.Lookup("o9")
	require.True(t, ok)
	assert.Equal(t, domain.StatusPaid, o.Status)
}

func TestOrderStore_KPIs(t *testing.T) {
	s := NewOrderStore(testOpts())
	day := 24 * time.Hour
	s.SetOrders([]domain.Order{
		order("new", "u1", domain.StatusCompleted, "30", day,
			domain.NewOrderItem("e1", "A", decimal.NewFromInt(10), 3)),
		order("mid", "u2", domain.StatusPending, "50", 10*day,
			domain.NewOrderItem("e2", "B", decimal.NewFromInt(25), 2)),
		order("old", "u3", domain.StatusCancelled, "20", 60*day,
			domain.NewOrderItem("e1", "A", decimal.NewFromInt(10), 2)),
	})

	all := s.KPIs(PeriodAll)
	assert.Equal(t, 3, all.TotalOrders)
	assert.True(t, decimal.NewFromInt(100).Equal(all.TotalRevenue))
	assert.InDelta(t, 100.0/3, all.ConversionRate, 1e-9)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all.RecentOrders[0].ID, all.RecentOrders[1].ID, all.RecentOrders[2].ID})
	require.Len(t, all.TopEvents, 2)
	assert.Equal(t, "e1", all.TopEvents[0].EventID)
	assert.Equal(t, 5, all.TopEvents[0].TotalQuantity)

	week := s.KPIs(Period7Days)
	assert.Equal(t, 1, week.TotalOrders)
	assert.InDelta(t, 100.0, week.ConversionRate, 1e-9)

	month := s.KPIs(ParsePeriod("30d"))
	assert.Equal(t, 2, month.TotalOrders)
	assert.True(t, decimal.NewFromInt(40).Equal(month.AverageOrderValue))
}

func TestOrderStore_KPIsEmpty(t *testing.T) {
	k := NewOrderStore(testOpts()).KPIs(ParsePeriod("bogus"))
	assert.Equal(t, PeriodAll, k.Period)
	assert.True(t, k.AverageOrderValue.IsZero())
	assert.Zero(t, k.ConversionRate)
	assert.Empty(t, k.TopEvents)
}
