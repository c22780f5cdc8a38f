package state

import (
	"testing"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, 6, 15, 12, 0, 0, 0, time.Local)

func testOpts() Options {
	return Options{Now: func() time.Time { return testNow }}
}

func ev(id string, mods ...func(*domain.Event)) domain.Event {
	e := domain.Event{
		ID:               id,
		Title:            "Event " + id,
		Genre:            "Rock",
		Country:          "BG",
		Price:            decimal.NewFromInt(10),
		TotalTickets:     100,
		AvailableTickets: 50,
		EventDate:        "2030-07-01",
	}
	for _, m := range mods {
		m(&e)
	}
	return e
}

func eventIDs(es []domain.Event) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}

func TestEventStore_SoftDeleteAndRestore(t *testing.T) {
	s := NewEventStore(testOpts())
	s.SetEvents([]domain.Event{ev("a"), ev("b")})
	s.SetSingle(ev("a"))

	require.True(t, s.MarkDeleted("a"))
	assert.Equal(t, 1, s.ActiveCount())
	assert.Equal(t, 1, s.DeletedCount())

	single, ok := s.Single()
	require.True(t, ok)
	assert.True(t, single.IsDeleted)
	require.NotNil(t, single.DeletedAt)
	assert.Equal(t, testNow, *single.DeletedAt)

	require.True(t, s.MarkRestored("a"))
	got, _ := s.ByID("a")
	assert.False(t, got.IsDeleted)
	assert.Nil(t, got.DeletedAt)
	assert.Nil(t, got.DeletedBy)
}

func TestEventStore_FiltersExcludeDeleted(t *testing.T) {
	s := NewEventStore(testOpts())
	s.SetEvents([]domain.Event{
		ev("a", func(e *domain.Event) { e.Genre = "JAZZ"; e.Title = "Blue Night" }),
		ev("b", func(e *domain.Event) { e.Genre = "jazz"; e.IsDeleted = true; e.Title = "Blue Moon" }),
		ev("c", func(e *domain.Event) { e.Country = "de"; e.AvailableTickets = 0 }),
	})

	assert.Equal(t, []string{"a"}, eventIDs(s.ByGenre("jazz")))
	assert.Equal(t, []string{"a"}, eventIDs(s.SearchByTitle("blue")))
	assert.Equal(t, []string{"c"}, eventIDs(s.ByCountry("DE")))
	assert.Equal(t, []string{"c"}, eventIDs(s.SoldOut()))
	assert.Equal(t, []string{"a"}, eventIDs(s.Available()))
}

func TestEventStore_UpcomingAndPast(t *testing.T) {
	s := NewEventStore(testOpts())
	s.SetEvents([]domain.Event{
		ev("later", func(e *domain.Event) { e.EventDate = "2030-09-01" }),
		ev("soon", func(e *domain.Event) { e.EventDate = "2030-07-01" }),
		ev("old", func(e *domain.Event) { e.EventDate = "2029-01-01" }),
		ev("older", func(e *domain.Event) { e.EventDate = "2028-01-01" }),
		ev("undated", func(e *domain.Event) { e.EventDate = "" }),
	})

	assert.Equal(t, []string{"soon", "later"}, eventIDs(s.Upcoming()))
	assert.Equal(t, []string{"old", "older"}, eventIDs(s.Past()))
}

func TestEventStore_TopRated(t *testing.T) {
	s := NewEventStore(testOpts())
	s.SetEvents([]domain.Event{
		ev("unrated"),
		ev("a", func(e *domain.Event) { e.RatingAvg = 4.5; e.RatingCount = 2 }),
		ev("b", func(e *domain.Event) { e.RatingAvg = 4.5; e.RatingCount = 10 }),
		ev("c", func(e *domain.Event) { e.RatingAvg = 5; e.RatingCount = 1 }),
	})

	assert.Equal(t, []string{"c", "b", "a"}, eventIDs(s.TopRated(0)))
	assert.Equal(t, []string{"c"}, eventIDs(s.TopRated(1)))
}

func TestEventStore_StatsZeroSafe(t *testing.T) {
	s := NewEventStore(testOpts())
	st := s.Stats()
	assert.True(t, st.AvgTicketPrice.IsZero())
	assert.Zero(t, st.TicketsSoldPercentage)
	assert.Empty(t, st.LowStock)
}

func TestEventStore_Stats(t *testing.T) {
	s := NewEventStore(testOpts())
	s.SetEvents([]domain.Event{
		ev("low", func(e *domain.Event) { e.AvailableTickets = 10; e.Price = decimal.NewFromInt(20) }),
		ev("lower", func(e *domain.Event) { e.AvailableTickets = 5 }),
		ev("sold", func(e *domain.Event) { e.AvailableTickets = 0; e.EventDate = "2020-01-01" }),
		ev("gone", func(e *domain.Event) { e.IsDeleted = true }),
		ev("nodate", func(e *domain.Event) { e.EventDate = "" }),
	})

	st := s.Stats()
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 4, st.Active)
	assert.Equal(t, 1, st.SoldOut)
	assert.Equal(t, 3, st.Upcoming)
	assert.True(t, decimal.RequireFromString("12.5").Equal(st.AvgTicketPrice))
	require.Len(t, st.LowStock, 2)
	assert.Equal(t, "lower", st.LowStock[0].Event.ID)
	assert.Equal(t, 65, st.TicketsAvailable)
	assert.Equal(t, 400, st.TicketsCapacity)
	assert.InDelta(t, 83.75, st.TicketsSoldPercentage, 1e-9)
}
