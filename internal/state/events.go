package state

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/shopspring/decimal"
)

const lowStockThreshold = 0.2

type EventStore struct {
	list   *List[domain.Event]
	logger *slog.Logger
	now    func() time.Time
}

func NewEventStore(opts Options) *EventStore {
	opts = opts.withDefaults()
	return &EventStore{
		list:   NewList(func(e domain.Event) string { return e.ID }, domain.Event.Clone, Prepend),
		logger: opts.Logger.With("store", "events"),
		now:    opts.Now,
	}
}

func isActive(e domain.Event) bool { return !e.IsDeleted }

func (s *EventStore) SetEvents(events []domain.Event) {
	s.list.SetAll(events)
	s.logger.Debug("events set", "count", len(events))
}

// SetSingle focuses e and upserts it into the list.
func (s *EventStore) SetSingle(e domain.Event) {
	s.list.SetFocus(e)
	s.logger.Debug("single event set", "id", e.ID)
}

func (s *EventStore) ClearSingle() { s.list.ClearFocus() }

func (s *EventStore) Single() (domain.Event, bool) { return s.list.Focus() }

// Upsert replaces e in place, or prepends it when new.
func (s *EventStore) Upsert(e domain.Event) {
	replaced := s.list.Upsert(e)
	s.logger.Debug("event upserted", "id", e.ID, "replaced", replaced)
}

func (s *EventStore) Remove(id string) {
	if s.list.RemoveByID(id) {
		s.logger.Debug("event removed", "id", id)
	}
}

func (s *EventStore) MarkDeleted(id string) bool {
	now := s.now()
	return s.list.Patch(id, func(e *domain.Event) {
		e.IsDeleted = true
		e.DeletedAt = &now
	})
}

func (s *EventStore) MarkRestored(id string) bool {
	return s.list.Patch(id, func(e *domain.Event) {
		e.IsDeleted = false
		e.DeletedAt = nil
		e.DeletedBy = nil
	})
}

func (s *EventStore) Clear() {
	s.list.Clear()
	s.logger.Debug("events cleared")
}

func (s *EventStore) Revision() uint64 { return s.list.Revision() }

func (s *EventStore) Snapshot() Snapshot[domain.Event] { return s.list.Snapshot() }

func (s *EventStore) Restore(snap Snapshot[domain.Event]) { s.list.Restore(snap) }

// --- derived views ---

func (s *EventStore) Events() []domain.Event { return s.list.Items() }

func (s *EventStore) ByID(id string) (domain.Event, bool) { return s.list.Get(id) }

func (s *EventStore) Total() int        { return s.list.Len() }
func (s *EventStore) ActiveCount() int  { return s.list.Count(isActive) }
func (s *EventStore) DeletedCount() int { return s.list.Len() - s.list.Count(isActive) }
func (s *EventStore) IsEmpty() bool     { return s.list.Len() == 0 }

func (s *EventStore) HasSingle() bool {
	_, ok := s.list.Focus()
	return ok
}

func (s *EventStore) Active() []domain.Event { return s.list.Filter(isActive) }

func (s *EventStore) Deleted() []domain.Event {
	return s.list.Filter(func(e domain.Event) bool { return e.IsDeleted })
}

func (s *EventStore) ByGenre(genre string) []domain.Event {
	return s.list.Filter(func(e domain.Event) bool {
		return !e.IsDeleted && strings.EqualFold(e.Genre, genre)
	})
}

func (s *EventStore) ByCountry(country string) []domain.Event {
	return s.list.Filter(func(e domain.Event) bool {
		return !e.IsDeleted && strings.EqualFold(e.Country, country)
	})
}

func (s *EventStore) SearchByTitle(q string) []domain.Event {
	q = strings.ToLower(q)
	return s.list.Filter(func(e domain.Event) bool {
		return !e.IsDeleted && strings.Contains(strings.ToLower(e.Title), q)
	})
}

// Upcoming lists active dated events in the future, soonest first.
func (s *EventStore) Upcoming() []domain.Event {
	now := s.now()
	out := s.list.Filter(func(e domain.Event) bool {
		t, ok := e.StartsAt()
		return !e.IsDeleted && ok && t.After(now)
	})
	slices.SortStableFunc(out, byStart(false))
	return out
}

// Past lists active events that already started, most recent first.
func (s *EventStore) Past() []domain.Event {
	now := s.now()
	out := s.list.Filter(func(e domain.Event) bool {
		return !e.IsDeleted && e.IsPast(now)
	})
	slices.SortStableFunc(out, byStart(true))
	return out
}

func byStart(desc bool) func(a, b domain.Event) int {
	return func(a, b domain.Event) int {
		ta, _ := a.StartsAt()
		tb, _ := b.StartsAt()
		if desc {
			return tb.Compare(ta)
		}
		return ta.Compare(tb)
	}
}

func (s *EventStore) Available() []domain.Event {
	return s.list.Filter(func(e domain.Event) bool { return !e.IsDeleted && e.AvailableTickets > 0 })
}

func (s *EventStore) SoldOut() []domain.Event {
	return s.list.Filter(func(e domain.Event) bool { return !e.IsDeleted && e.IsSoldOut() })
}

// TopRated returns rated active events by average then count. limit <= 0 means 10.
func (s *EventStore) TopRated(limit int) []domain.Event {
	if limit <= 0 {
		limit = 10
	}
	out := s.list.Filter(func(e domain.Event) bool { return !e.IsDeleted && e.RatingCount > 0 })
	slices.SortStableFunc(out, func(a, b domain.Event) int {
		if c := cmp.Compare(b.RatingAvg, a.RatingAvg); c != 0 {
			return c
		}
		return cmp.Compare(b.RatingCount, a.RatingCount)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type LowStockEvent struct {
	Event   domain.Event `json:"event"`
	Percent float64      `json:"percent"`
}

// EventStats are the inventory figures shown on the admin dashboard.
type EventStats struct {
	Total                 int             `json:"total"`
	Active                int             `json:"active"`
	Deleted               int             `json:"deleted"`
	SoldOut               int             `json:"soldOut"`
	Upcoming              int             `json:"upcoming"`
	AvgTicketPrice        decimal.Decimal `json:"avgTicketPrice"`
	LowStock              []LowStockEvent `json:"lowStock"`
	TicketsAvailable      int             `json:"ticketsAvailable"`
	TicketsCapacity       int             `json:"ticketsCapacity"`
	TicketsSoldPercentage float64         `json:"ticketsSoldPercentage"`
}

func (s *EventStore) Stats() EventStats {
	all := s.list.Items()
	now := s.now()

	st := EventStats{Total: len(all), AvgTicketPrice: decimal.Zero, LowStock: []LowStockEvent{}}
	priceSum := decimal.Zero

	for _, e := range all {
		if e.IsDeleted {
			st.Deleted++
			continue
		}
		st.Active++
		priceSum = priceSum.Add(e.Price)
		st.TicketsAvailable += e.AvailableTickets
		st.TicketsCapacity += e.TotalTickets

		if e.IsSoldOut() {
			st.SoldOut++
		} else if e.TotalTickets > 0 && e.StockRatio() < lowStockThreshold {
			st.LowStock = append(st.LowStock, LowStockEvent{Event: e, Percent: e.StockRatio() * 100})
		}

		if e.IsUpcoming(now) {
			st.Upcoming++
		}
	}

	if st.Active > 0 {
		st.AvgTicketPrice = priceSum.Div(decimal.NewFromInt(int64(st.Active)))
	}

	slices.SortStableFunc(st.LowStock, func(a, b LowStockEvent) int { return cmp.Compare(a.Percent, b.Percent) })
	if len(st.LowStock) > 5 {
		st.LowStock = st.LowStock[:5]
	}

	if st.TicketsCapacity > 0 {
		sold := st.TicketsCapacity - st.TicketsAvailable
		st.TicketsSoldPercentage = float64(sold) / float64(st.TicketsCapacity) * 100
	}

	return st
}
