package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaders struct {
	userStore  *state.UserStore
	eventStore *state.EventStore
	orderStore *state.OrderStore
	orderErr   error
	eventsDone atomic.Bool
}

func (l *loaders) LoadUsers(ctx context.Context) ([]domain.AdminUser, error) {
	users := []domain.AdminUser{{ID: "u1", Role: domain.RoleAdmin}, {ID: "u2", Role: domain.RoleUser}}
	l.userStore.SetUsers(users)
	return users, nil
}

func (l *loaders) LoadAllAdmin(ctx context.Context) ([]domain.Event, error) {
	if l.orderErr != nil {
		// Finish after the orders load has already failed.
		time.Sleep(20 * time.Millisecond)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer l.eventsDone.Store(true)
	evs := []domain.Event{{ID: "e1", Price: decimal.NewFromInt(10), TotalTickets: 10, AvailableTickets: 4}}
	l.eventStore.SetEvents(evs)
	return evs, nil
}

func (l *loaders) LoadOrders(context.Context) ([]domain.Order, error) {
	if l.orderErr != nil {
		return nil, l.orderErr
	}
	orders := []domain.Order{{ID: "o1", Status: domain.StatusCompleted, TotalPrice: decimal.NewFromInt(60), CreatedAt: time.Now()}}
	l.orderStore.SetOrders(orders)
	return orders, nil
}

func newService(l *loaders) *Service {
	l.userStore = state.NewUserStore(state.Options{})
	l.eventStore = state.NewEventStore(state.Options{})
	l.orderStore = state.NewOrderStore(state.Options{})
	return New(l, l.userStore, l, l.eventStore, l, l.orderStore, nil)
}

func TestService_LoadAndSnapshot(t *testing.T) {
	l := &loaders{}
	s := newService(l)

	require.NoError(t, s.Load(context.Background()))
	snap := s.Snapshot(state.Period7Days)

	assert.Equal(t, state.Period7Days, snap.Period)
	assert.Equal(t, 2, snap.Users.Total)
	assert.Equal(t, 1, snap.Users.Admins)
	assert.Equal(t, 1, snap.Events.Active)
	assert.InDelta(t, 60.0, snap.Events.TicketsSoldPercentage, 1e-9)
	assert.Equal(t, 1, snap.Orders.TotalOrders)
	assert.True(t, decimal.NewFromInt(60).Equal(snap.Orders.TotalRevenue))
}

func TestService_LoadFailureKeepsSiblings(t *testing.T) {
	boom := errors.New("boom")
	l := &loaders{orderErr: boom}
	s := newService(l)

	err := s.Load(context.Background())
	require.ErrorIs(t, err, boom)
	assert.True(t, l.eventsDone.Load())

	le, ok := AsLoadError(err)
	require.True(t, ok)
	assert.False(t, le.Total())
	require.Len(t, le.Failed, 1)
	assert.ErrorIs(t, le.Failed[SectionOrders], boom)

	snap := s.Snapshot(state.Period7Days)
	assert.Equal(t, 2, snap.Users.Total)
	assert.Equal(t, 1, snap.Events.Active)
	assert.Equal(t, 0, snap.Orders.TotalOrders)
}

func TestLoadError_Total(t *testing.T) {
	boom := errors.New("boom")
	le := &LoadError{Failed: map[Section]error{SectionUsers: boom, SectionEvents: boom, SectionOrders: boom}}
	assert.True(t, le.Total())
	assert.Equal(t, "events: boom; orders: boom; users: boom", le.Error())
}
