package state

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/storage"
	"github.com/shopspring/decimal"
)

const persistTimeout = 3 * time.Second

// CartStore holds cart lines keyed by event id and writes the whole cart to
// local storage after every mutation. It performs no availability checks.
type CartStore struct {
	mu    sync.RWMutex
	items []domain.CartItem
	rev   uint64

	storage storage.Local
	logger  *slog.Logger
	now     func() time.Time
}

func NewCartStore(st storage.Local, opts Options) *CartStore {
	opts = opts.withDefaults()
	return &CartStore{
		storage: st,
		logger:  opts.Logger.With("store", "cart"),
		now:     opts.Now,
	}
}

type storedCartItem struct {
	Event    json.RawMessage `json:"event"`
	AddedAt  json.RawMessage `json:"addedAt"`
	Quantity json.RawMessage `json:"quantity"`
}

// maxStoredQuantity caps quantities read back from storage.
const maxStoredQuantity = math.MaxInt32

// coerceQuantity maps anything but a positive number to 1 and caps the rest
// at maxStoredQuantity.
func coerceQuantity(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 1
	}
	if f >= maxStoredQuantity {
		return maxStoredQuantity
	}
	return int(f)
}

func decodeAddedAt(raw json.RawMessage, fallback time.Time) time.Time {
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(ms)
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil && !t.IsZero() {
		return t
	}
	return fallback
}

// decodeCart never fails on bad entries: they are skipped or repaired.
// ok is false only when the blob is not a JSON array at all.
func decodeCart(blob string, now time.Time) ([]domain.CartItem, bool) {
	var raws []storedCartItem
	if err := json.Unmarshal([]byte(blob), &raws); err != nil {
		return nil, false
	}

	seen := make(map[string]struct{}, len(raws))
	items := make([]domain.CartItem, 0, len(raws))
	for _, r := range raws {
		var ev domain.Event
		if err := json.Unmarshal(r.Event, &ev); err != nil || ev.ID == "" {
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		items = append(items, domain.CartItem{
			Event:    ev,
			AddedAt:  decodeAddedAt(r.AddedAt, now),
			Quantity: coerceQuantity(r.Quantity),
		})
	}
	return items, true
}

type cartItemRecord struct {
	Event    domain.Event `json:"event"`
	AddedAt  int64        `json:"addedAt"`
	Quantity int          `json:"quantity"`
}

// Load replaces the in-memory cart with the persisted one. A corrupt blob
// yields an empty cart and is removed from storage.
func (s *CartStore) Load(ctx context.Context) error {
	const op = "state.CartStore.Load"

	blob, ok, err := s.storage.Get(ctx, storage.KeyCart)
	if err != nil {
		s.logger.Error("load cart", "op", op, "error", err)
		return err
	}

	var items []domain.CartItem
	if ok && blob != "" {
		var valid bool
		items, valid = decodeCart(blob, s.now())
		if !valid {
			s.logger.Warn("corrupt cart in storage, clearing", "op", op)
			if err := s.storage.Remove(ctx, storage.KeyCart); err != nil {
				s.logger.Error("clear corrupt cart", "op", op, "error", err)
			}
		}
	}

	s.mu.Lock()
	s.items = items
	s.rev++
	s.mu.Unlock()

	s.logger.Debug("cart loaded", "count", len(items))
	return nil
}

// persistLocked must be called with s.mu held.
func (s *CartStore) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	recs := make([]cartItemRecord, 0, len(s.items))
	for _, it := range s.items {
		recs = append(recs, cartItemRecord{Event: it.Event, AddedAt: it.AddedAt.UnixMilli(), Quantity: it.Quantity})
	}

	b, err := json.Marshal(recs)
	if err != nil {
		s.logger.Error("encode cart", "error", err)
		return
	}
	if err := s.storage.Set(ctx, storage.KeyCart, string(b)); err != nil {
		s.logger.Error("save cart", "error", err)
	}
}

func (s *CartStore) indexLocked(eventID string) int {
	for i, it := range s.items {
		if it.Event.ID == eventID {
			return i
		}
	}
	return -1
}

func (s *CartStore) mutate(fn func(items []domain.CartItem) []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.CartItem, len(s.items))
	copy(next, s.items)
	s.items = fn(next)
	s.rev++
	s.persistLocked()
}

// AddItem increments the line for e, or prepends a new line with quantity 1.
func (s *CartStore) AddItem(e domain.Event) {
	s.mutate(func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].Event.ID == e.ID {
				items[i].Quantity++
				return items
			}
		}
		return append([]domain.CartItem{{Event: e.Clone(), AddedAt: s.now(), Quantity: 1}}, items...)
	})
}

func (s *CartStore) Increase(eventID string) {
	s.SetQuantity(eventID, s.Quantity(eventID)+1)
}

// Decrease lowers the quantity by one, removing the line at 1.
func (s *CartStore) Decrease(eventID string) {
	q := s.Quantity(eventID)
	if q == 0 {
		return
	}
	s.SetQuantity(eventID, q-1)
}

// SetQuantity sets an absolute quantity. q < 1 removes the line.
func (s *CartStore) SetQuantity(eventID string, q int) {
	if q < 1 {
		s.Remove(eventID)
		return
	}
	s.mutate(func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].Event.ID == eventID {
				items[i].Quantity = q
			}
		}
		return items
	})
}

func (s *CartStore) Remove(eventID string) {
	s.mutate(func(items []domain.CartItem) []domain.CartItem {
		return slices.DeleteFunc(items, func(it domain.CartItem) bool { return it.Event.ID == eventID })
	})
}

// SetItems replaces the cart wholesale.
func (s *CartStore) SetItems(items []domain.CartItem) {
	s.mutate(func([]domain.CartItem) []domain.CartItem {
		out := make([]domain.CartItem, 0, len(items))
		for _, it := range items {
			out = append(out, it.Clone())
		}
		return out
	})
}

// RefreshEvent replaces the event snapshot of an existing line.
func (s *CartStore) RefreshEvent(e domain.Event) {
	s.mutate(func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].Event.ID == e.ID {
				items[i].Event = e.Clone()
			}
		}
		return items
	})
}

// Clear empties the cart and deletes the storage key.
func (s *CartStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.rev++

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.storage.Remove(ctx, storage.KeyCart); err != nil {
		s.logger.Error("remove cart", "error", err)
	}
}

func (s *CartStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// --- derived views ---

func (s *CartStore) view(pred func(domain.CartItem) bool) []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CartItem, 0, len(s.items))
	for _, it := range s.items {
		if pred == nil || pred(it) {
			out = append(out, it.Clone())
		}
	}
	return out
}

func (s *CartStore) Items() []domain.CartItem { return s.view(nil) }

func (s *CartStore) ItemsCount() int {
	n := 0
	for _, it := range s.view(nil) {
		n += it.Quantity
	}
	return n
}

func (s *CartStore) TotalPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.view(nil) {
		sum = sum.Add(it.Total())
	}
	return sum
}

func (s *CartStore) UniqueEventsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *CartStore) IsEmpty() bool  { return s.UniqueEventsCount() == 0 }
func (s *CartStore) HasItems() bool { return s.UniqueEventsCount() > 0 }

func (s *CartStore) Item(eventID string) (domain.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(eventID); i >= 0 {
		return s.items[i].Clone(), true
	}
	return domain.CartItem{}, false
}

func (s *CartStore) IsInCart(eventID string) bool {
	_, ok := s.Item(eventID)
	return ok
}

// Quantity returns 0 for events not in the cart.
func (s *CartStore) Quantity(eventID string) int {
	it, _ := s.Item(eventID)
	return it.Quantity
}

func (s *CartStore) ItemTotalPrice(eventID string) decimal.Decimal {
	it, ok := s.Item(eventID)
	if !ok {
		return decimal.Zero
	}
	return it.Total()
}

func (s *CartStore) ByDateAdded(desc bool) []domain.CartItem {
	out := s.view(nil)
	slices.SortStableFunc(out, func(a, b domain.CartItem) int {
		if desc {
			return b.AddedAt.Compare(a.AddedAt)
		}
		return a.AddedAt.Compare(b.AddedAt)
	})
	return out
}

// ByPrice orders lines by line total.
func (s *CartStore) ByPrice(desc bool) []domain.CartItem {
	out := s.view(nil)
	slices.SortStableFunc(out, func(a, b domain.CartItem) int {
		if desc {
			return b.Total().Cmp(a.Total())
		}
		return a.Total().Cmp(b.Total())
	})
	return out
}

func (s *CartStore) ByGenre(genre string) []domain.CartItem {
	return s.view(func(it domain.CartItem) bool { return strings.EqualFold(it.Event.Genre, genre) })
}

func (s *CartStore) ByCountry(country string) []domain.CartItem {
	return s.view(func(it domain.CartItem) bool { return strings.EqualFold(it.Event.Country, country) })
}

func (s *CartStore) Available() []domain.CartItem {
	return s.view(func(it domain.CartItem) bool { return it.Event.AvailableTickets > 0 })
}

func (s *CartStore) Unavailable() []domain.CartItem {
	return s.view(func(it domain.CartItem) bool { return it.Event.AvailableTickets == 0 })
}

func exceeds(it domain.CartItem) bool { return it.Quantity > it.Event.AvailableTickets }

func (s *CartStore) AreAllAvailable() bool {
	return len(s.view(exceeds)) == 0
}

func (s *CartStore) ExceedingAvailability() []domain.CartItem { return s.view(exceeds) }

func (s *CartStore) Validate() domain.CartValidation {
	issues := []domain.AvailabilityIssue{}
	for _, it := range s.view(exceeds) {
		issues = append(issues, domain.AvailabilityIssue{
			EventID:    it.Event.ID,
			EventTitle: it.Event.Title,
			Requested:  it.Quantity,
			Available:  it.Event.AvailableTickets,
		})
	}
	return domain.CartValidation{Valid: len(issues) == 0, Issues: issues}
}
