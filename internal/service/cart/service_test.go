package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/kirinyoku/tix-client/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	events    []domain.Event
	err       error
	reloadErr error
	calls     int
}

// LoadAll fails with reloadErr on every call after the first.
func (f *fakeCatalog) LoadAll(context.Context) ([]domain.Event, error) {
	f.calls++
	if f.calls > 1 && f.reloadErr != nil {
		return nil, f.reloadErr
	}
	return f.events, f.err
}

type fakePlacer struct {
	got   []domain.CartItem
	err   error
	calls int
}

func (f *fakePlacer) CreateFromCart(_ context.Context, items []domain.CartItem) (domain.Order, error) {
	f.calls++
	f.got = items
	if f.err != nil {
		return domain.Order{}, f.err
	}
	return domain.Order{ID: "o1", Status: domain.StatusPending}, nil
}

func ev(id string, available int) domain.Event {
	return domain.Event{ID: id, Title: "Event " + id, Price: decimal.NewFromInt(10), TotalTickets: 10, AvailableTickets: available}
}

func newService(cat *fakeCatalog, placer *fakePlacer) *Service {
	store := state.NewCartStore(storage.NewMemory(), state.Options{})
	return New(store, cat, placer, nil)
}

func TestService_AddBoundary(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	e := ev("a", 2)

	require.NoError(t, s.Add(e))
	assert.Empty(t, s.Status().Warning)

	require.NoError(t, s.Add(e))
	assert.Equal(t, "You have added all available tickets for this event.", s.Status().Warning)

	err := s.Add(e)
	require.Error(t, err)
	var avail *AvailabilityError
	require.ErrorAs(t, err, &avail)
	assert.Equal(t, 3, avail.Requested)
	assert.Equal(t, "Cannot add more tickets. Only 2 available.", err.Error())
	assert.Equal(t, 2, s.Store().Quantity("a"))
	assert.False(t, s.Status().LastOperationSuccess)
	assert.Empty(t, s.Status().Warning)
}

func TestService_AddDeletedEvent(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	e := ev("a", 5)
	e.IsDeleted = true

	err := s.Add(e)
	assert.ErrorIs(t, err, ErrEventDeleted)
	assert.Equal(t, "Cannot add deleted event to cart.", s.Status().Error)
	assert.True(t, s.Store().IsEmpty())
}

func TestService_IncreaseAtAvailabilityFails(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	e := ev("a", 2)
	require.NoError(t, s.Add(e))
	require.NoError(t, s.Add(e))

	err := s.Increase("a")
	require.Error(t, err)
	assert.Equal(t, "Cannot add more tickets. Only 2 available.", s.Status().Error)
	assert.Equal(t, 2, s.Store().Quantity("a"))

	assert.ErrorIs(t, s.Increase("missing"), ErrItemNotFound)
	assert.Equal(t, "Item not found in cart.", s.Status().Error)
}

func TestService_SetQuantity(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	require.NoError(t, s.Add(ev("a", 4)))

	err := s.SetQuantity("a", 9)
	require.Error(t, err)
	assert.Equal(t, "Cannot add 9 tickets. Only 4 available.", err.Error())

	require.NoError(t, s.SetQuantity("a", 4))
	assert.Equal(t, msgAllAvailable, s.Status().Warning)

	require.NoError(t, s.SetQuantity("a", 0))
	assert.False(t, s.Store().IsInCart("a"))
	assert.True(t, s.Status().LastOperationSuccess)
}

func TestService_DecreaseAtOneRemoves(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	require.NoError(t, s.Add(ev("a", 4)))

	s.Decrease("a")
	assert.True(t, s.Store().IsEmpty())
}

func TestService_FixAvailability(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	s.Store().SetItems([]domain.CartItem{
		{Event: ev("a", 1), Quantity: 3},
		{Event: ev("b", 0), Quantity: 1},
		{Event: ev("c", 5), Quantity: 2},
	})

	assert.Equal(t, 2, s.FixAvailability())
	assert.Equal(t, "Cart adjusted: 2 item(s) had availability issues.", s.Status().Warning)
	assert.Equal(t, 1, s.Store().Quantity("a"))
	assert.False(t, s.Store().IsInCart("b"))
	assert.Equal(t, 2, s.Store().Quantity("c"))
	assert.True(t, s.AreAllItemsAvailable())

	assert.Zero(t, s.FixAvailability())
}

func TestService_RemoveUnavailable(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	s.Store().SetItems([]domain.CartItem{
		{Event: ev("a", 0), Quantity: 1},
		{Event: ev("b", 3), Quantity: 1},
	})

	assert.Equal(t, 1, s.RemoveUnavailable())
	assert.Equal(t, "Removed 1 unavailable item(s) from cart.", s.Status().Warning)
	assert.Equal(t, 1, s.Store().UniqueEventsCount())
}

func TestService_Revalidate(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	s.Store().SetItems([]domain.CartItem{
		{Event: ev("a", 10), Quantity: 4},
		{Event: ev("gone", 10), Quantity: 1},
		{Event: ev("deleted", 10), Quantity: 1},
	})
	deleted := ev("deleted", 10)
	deleted.IsDeleted = true
	fresh := ev("a", 3)
	fresh.Price = decimal.NewFromInt(12)

	n := s.Revalidate([]domain.Event{fresh, deleted})

	assert.Equal(t, 3, n)
	items := s.Store().Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "12", items[0].Event.Price.String())
}

func TestService_CheckoutAbortsWhenAdjusted(t *testing.T) {
	placer := &fakePlacer{}
	s := newService(&fakeCatalog{events: []domain.Event{ev("a", 1)}}, placer)
	s.Store().SetItems([]domain.CartItem{{Event: ev("a", 5), Quantity: 2}})

	_, err := s.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrCartAdjusted)
	assert.Equal(t, "Cart adjusted: 1 item(s) had availability issues.", err.Error())
	assert.Zero(t, placer.calls)
	assert.Equal(t, 1, s.Store().Quantity("a"))
}

func TestService_CheckoutPlacesOrderAndClears(t *testing.T) {
	placer := &fakePlacer{}
	catalog := &fakeCatalog{events: []domain.Event{ev("a", 5)}}
	s := newService(catalog, placer)
	require.NoError(t, s.Add(ev("a", 5)))

	o, err := s.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
	require.Len(t, placer.got, 1)
	assert.True(t, s.Store().IsEmpty())
	assert.Equal(t, 2, catalog.calls)

	st := s.Status()
	assert.True(t, st.LastOperationSuccess)
	assert.False(t, st.Operating)
}

func TestService_CheckoutIgnoresReloadFailure(t *testing.T) {
	catalog := &fakeCatalog{events: []domain.Event{ev("a", 5)}, reloadErr: errors.New("Failed to load events")}
	s := newService(catalog, &fakePlacer{})
	require.NoError(t, s.Add(ev("a", 5)))

	o, err := s.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, 2, catalog.calls)
	assert.True(t, s.Status().LastOperationSuccess)
}

func TestService_CheckoutKeepsCartOnOrderFailure(t *testing.T) {
	placer := &fakePlacer{err: errors.New("Tickets sold out.")}
	s := newService(&fakeCatalog{events: []domain.Event{ev("a", 5)}}, placer)
	require.NoError(t, s.Add(ev("a", 5)))

	_, err := s.Checkout(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Tickets sold out.", s.Status().Error)
	assert.Equal(t, 1, s.Store().Quantity("a"))
}

func TestService_CheckoutEmpty(t *testing.T) {
	s := newService(&fakeCatalog{}, &fakePlacer{})
	_, err := s.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
}
