package state

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/shopspring/decimal"
)

type OrderStore struct {
	list   *List[domain.Order]
	logger *slog.Logger
	now    func() time.Time
}

func NewOrderStore(opts Options) *OrderStore {
	opts = opts.withDefaults()
	return &OrderStore{
		list:   NewList(func(o domain.Order) string { return o.ID }, domain.Order.Clone, Prepend),
		logger: opts.Logger.With("store", "orders"),
		now:    opts.Now,
	}
}

func hasStatus(st domain.OrderStatus) func(domain.Order) bool {
	return func(o domain.Order) bool { return o.Status == st }
}

func (s *OrderStore) SetOrders(orders []domain.Order) {
	s.list.SetAll(orders)
	s.logger.Debug("orders set", "count", len(orders))
}

func (s *OrderStore) SetSingle(o domain.Order) {
	s.list.SetFocus(o)
	s.logger.Debug("single order set", "id", o.ID)
}

func (s *OrderStore) ClearSingle() { s.list.ClearFocus() }

func (s *OrderStore) Single() (domain.Order, bool) { return s.list.Focus() }

// Upsert stores o as returned by the server. Totals are taken verbatim.
func (s *OrderStore) Upsert(o domain.Order) {
	replaced := s.list.Upsert(o)
	s.logger.Debug("order upserted", "id", o.ID, "replaced", replaced)
}

func (s *OrderStore) Remove(id string) {
	if s.list.RemoveByID(id) {
		s.logger.Debug("order removed", "id", id)
	}
}

func (s *OrderStore) RemoveForUser(userID string) int {
	n := s.list.RemoveWhere(func(o domain.Order) bool { return o.UserID == userID })
	s.logger.Debug("orders removed for user", "user_id", userID, "count", n)
	return n
}

func (s *OrderStore) Clear() {
	s.list.Clear()
	s.logger.Debug("orders cleared")
}

func (s *OrderStore) Revision() uint64 { return s.list.Revision() }

// Lookup finds an order in the list, falling back to the focus slot.
func (s *OrderStore) Lookup(id string) (domain.Order, bool) {
	if o, ok := s.list.Get(id); ok {
		return o, true
	}
	if o, ok := s.list.Focus(); ok && o.ID == id {
		return o, true
	}
	return domain.Order{}, false
}

// --- derived views ---

func (s *OrderStore) Orders() []domain.Order { return s.list.Items() }

func (s *OrderStore) ByID(id string) (domain.Order, bool) { return s.list.Get(id) }

func (s *OrderStore) Total() int    { return s.list.Len() }
func (s *OrderStore) IsEmpty() bool { return s.list.Len() == 0 }

func (s *OrderStore) HasSingle() bool {
	_, ok := s.list.Focus()
	return ok
}

func (s *OrderStore) CountByStatus(st domain.OrderStatus) int { return s.list.Count(hasStatus(st)) }

// StatusCounts returns a count for every known status, zeros included.
func (s *OrderStore) StatusCounts() map[domain.OrderStatus]int {
	out := make(map[domain.OrderStatus]int, len(domain.OrderStatuses))
	for _, st := range domain.OrderStatuses {
		out[st] = 0
	}
	for _, o := range s.list.Items() {
		out[o.Status]++
	}
	return out
}

func (s *OrderStore) ForUser(userID string) []domain.Order {
	return s.list.Filter(func(o domain.Order) bool { return o.UserID == userID })
}

func (s *OrderStore) ByStatus(st domain.OrderStatus) []domain.Order {
	return s.list.Filter(hasStatus(st))
}

func containsEvent(eventID string) func(domain.Order) bool {
	return func(o domain.Order) bool {
		for _, it := range o.Items {
			if it.EventID == eventID {
				return true
			}
		}
		return false
	}
}

func (s *OrderStore) ForEvent(eventID string) []domain.Order {
	return s.list.Filter(containsEvent(eventID))
}

func byCreatedDesc(a, b domain.Order) int { return b.CreatedAt.Compare(a.CreatedAt) }

// Recent returns orders newest first. limit <= 0 returns all.
func (s *OrderStore) Recent(limit int) []domain.Order {
	out := s.list.Items()
	slices.SortStableFunc(out, byCreatedDesc)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *OrderStore) ByPrice(desc bool) []domain.Order {
	out := s.list.Items()
	slices.SortStableFunc(out, func(a, b domain.Order) int {
		if desc {
			return b.TotalPrice.Cmp(a.TotalPrice)
		}
		return a.TotalPrice.Cmp(b.TotalPrice)
	})
	return out
}

func sumTotals(orders []domain.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.TotalPrice)
	}
	return sum
}

// TotalRevenue sums completed orders only.
func (s *OrderStore) TotalRevenue() decimal.Decimal {
	return sumTotals(s.list.Filter(hasStatus(domain.StatusCompleted)))
}

func (s *OrderStore) RevenueForUser(userID string) decimal.Decimal {
	return sumTotals(s.list.Filter(func(o domain.Order) bool {
		return o.UserID == userID && o.Status == domain.StatusCompleted
	}))
}

// TicketsSoldForEvent counts tickets of eventID across completed orders.
func (s *OrderStore) TicketsSoldForEvent(eventID string) int {
	n := 0
	for _, o := range s.list.Filter(hasStatus(domain.StatusCompleted)) {
		for _, it := range o.Items {
			if it.EventID == eventID {
				n += it.Quantity
			}
		}
	}
	return n
}

func (s *OrderStore) UserPendingCount(userID string) int {
	return s.list.Count(func(o domain.Order) bool {
		return o.UserID == userID && o.Status == domain.StatusPending
	})
}

func (s *OrderStore) HasUserOrdered(userID string) bool {
	return s.list.Any(func(o domain.Order) bool { return o.UserID == userID })
}

func (s *OrderStore) HasUserCompletedOrders(userID string) bool {
	return s.list.Any(func(o domain.Order) bool {
		return o.UserID == userID && o.Status == domain.StatusCompleted
	})
}

func (s *OrderStore) ByUserEmail(email string) []domain.Order {
	return s.list.Filter(func(o domain.Order) bool {
		return o.UserEmail != "" && strings.EqualFold(o.UserEmail, email)
	})
}

func (s *OrderStore) SearchByUserEmail(q string) []domain.Order {
	q = strings.ToLower(q)
	return s.list.Filter(func(o domain.Order) bool {
		return o.UserEmail != "" && strings.Contains(strings.ToLower(o.UserEmail), q)
	})
}

// InDateRange returns orders created within [start, end].
func (s *OrderStore) InDateRange(start, end time.Time) []domain.Order {
	return s.list.Filter(func(o domain.Order) bool {
		return !o.CreatedAt.Before(start) && !o.CreatedAt.After(end)
	})
}

func (s *OrderStore) Today() []domain.Order {
	start := domain.StartOfDay(s.now())
	return s.InDateRange(start, start.AddDate(0, 0, 1))
}

type OrderStatistics struct {
	Total             int             `json:"total"`
	Pending           int             `json:"pending"`
	Processing        int             `json:"processing"`
	Completed         int             `json:"completed"`
	Cancelled         int             `json:"cancelled"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// Statistics summarises the collection. Revenue and average only consider
// completed orders; the average is zero when there are none.
func (s *OrderStore) Statistics() OrderStatistics {
	all := s.list.Items()
	st := OrderStatistics{Total: len(all), TotalRevenue: decimal.Zero, AverageOrderValue: decimal.Zero}

	for _, o := range all {
		switch o.Status {
		case domain.StatusPending:
			st.Pending++
		case domain.StatusProcessing:
			st.Processing++
		case domain.StatusCompleted:
			st.Completed++
			st.TotalRevenue = st.TotalRevenue.Add(o.TotalPrice)
		case domain.StatusCancelled:
			st.Cancelled++
		}
	}

	if st.Completed > 0 {
		st.AverageOrderValue = st.TotalRevenue.Div(decimal.NewFromInt(int64(st.Completed)))
	}

	return st
}

type Period string

const (
	PeriodAll    Period = "all"
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
)

func ParsePeriod(s string) Period {
	switch Period(s) {
	case Period7Days, Period30Days:
		return Period(s)
	}
	return PeriodAll
}

func (p Period) window() time.Duration {
	switch p {
	case Period7Days:
		return 7 * 24 * time.Hour
	case Period30Days:
		return 30 * 24 * time.Hour
	}
	return 0
}

type StatusStat struct {
	Status domain.OrderStatus `json:"status"`
	Count  int                `json:"count"`
}

type TopEvent struct {
	EventID       string          `json:"eventId"`
	Title         string          `json:"title"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// OrderKPIs are the order figures of the admin dashboard for one period.
type OrderKPIs struct {
	Period            Period          `json:"period"`
	TotalOrders       int             `json:"totalOrders"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	StatusStats       []StatusStat    `json:"statusStats"`
	ConversionRate    float64         `json:"conversionRate"`
	RecentOrders      []domain.Order  `json:"recentOrders"`
	TopEvents         []TopEvent      `json:"topEvents"`
}

// KPIs computes dashboard figures over orders created within the period.
// Unlike Statistics, revenue here includes every status.
func (s *OrderStore) KPIs(p Period) OrderKPIs {
	orders := s.list.Items()
	if w := p.window(); w > 0 {
		cutoff := s.now().Add(-w)
		orders = slices.DeleteFunc(orders, func(o domain.Order) bool { return o.CreatedAt.Before(cutoff) })
	}

	k := OrderKPIs{
		Period:            p,
		TotalOrders:       len(orders),
		TotalRevenue:      sumTotals(orders),
		AverageOrderValue: decimal.Zero,
		StatusStats:       []StatusStat{},
		TopEvents:         []TopEvent{},
	}

	if k.TotalOrders > 0 {
		k.AverageOrderValue = k.TotalRevenue.Div(decimal.NewFromInt(int64(k.TotalOrders)))
	}

	counts := make(map[domain.OrderStatus]int)
	var order []domain.OrderStatus
	for _, o := range orders {
		if _, seen := counts[o.Status]; !seen {
			order = append(order, o.Status)
		}
		counts[o.Status]++
	}
	for _, st := range order {
		k.StatusStats = append(k.StatusStats, StatusStat{Status: st, Count: counts[st]})
	}

	if k.TotalOrders > 0 {
		k.ConversionRate = float64(counts[domain.StatusCompleted]) / float64(k.TotalOrders) * 100
	}

	recent := slices.Clone(orders)
	slices.SortStableFunc(recent, byCreatedDesc)
	if len(recent) > 5 {
		recent = recent[:5]
	}
	k.RecentOrders = recent

	byEvent := make(map[string]*TopEvent)
	var keys []string
	for _, o := range orders {
		for _, it := range o.Items {
			te, ok := byEvent[it.EventID]
			if !ok {
				te = &TopEvent{EventID: it.EventID, Title: it.Title, TotalRevenue: decimal.Zero}
				byEvent[it.EventID] = te
				keys = append(keys, it.EventID)
			}
			te.TotalQuantity += it.Quantity
			te.TotalRevenue = te.TotalRevenue.Add(it.LineTotal)
		}
	}
	for _, id := range keys {
		k.TopEvents = append(k.TopEvents, *byEvent[id])
	}
	slices.SortStableFunc(k.TopEvents, func(a, b TopEvent) int { return b.TotalRevenue.Cmp(a.TotalRevenue) })
	if len(k.TopEvents) > 5 {
		k.TopEvents = k.TopEvents[:5]
	}

	return k
}
