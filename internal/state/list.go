package state

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Insert selects where Upsert places an item that is not yet present.
type Insert int

const (
	Prepend Insert = iota
	Append
)

// Options are shared by every container constructor.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// List is an id-keyed ordered collection with an optional focus slot. Every
// mutation is a single critical section and bumps Revision. Reads return
// copies; callers never observe internal storage.
type List[T any] struct {
	mu     sync.RWMutex
	items  []T
	focus  *T
	rev    uint64
	id     func(T) string
	clone  func(T) T
	insert Insert
}

func NewList[T any](id func(T) string, clone func(T) T, insert Insert) *List[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &List[T]{id: id, clone: clone, insert: insert}
}

// Snapshot is an opaque deep copy of a List's items and focus.
type Snapshot[T any] struct {
	items []T
	focus *T
}

func (l *List[T]) copyItems(src []T) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = l.clone(v)
	}
	return out
}

func (l *List[T]) copyPtr(p *T) *T {
	if p == nil {
		return nil
	}
	v := l.clone(*p)
	return &v
}

func (l *List[T]) indexOf(id string) int {
	for i, v := range l.items {
		if l.id(v) == id {
			return i
		}
	}
	return -1
}

// SetAll replaces the whole collection. Later duplicates of an id are dropped.
func (l *List[T]) SetAll(xs []T) {
	seen := make(map[string]struct{}, len(xs))
	items := make([]T, 0, len(xs))
	for _, v := range xs {
		k := l.id(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		items = append(items, l.clone(v))
	}

	l.mu.Lock()
	l.items = items
	l.rev++
	l.mu.Unlock()
}

// Upsert replaces the item with x's id in place, or inserts x per the list's
// policy. A focus slot holding the same id is refreshed. Reports whether an
// existing item was replaced.
func (l *List[T]) Upsert(x T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.upsertLocked(x)
}

func (l *List[T]) upsertLocked(x T) bool {
	k := l.id(x)
	replaced := false

	if i := l.indexOf(k); i >= 0 {
		next := make([]T, len(l.items))
		copy(next, l.items)
		next[i] = l.clone(x)
		l.items = next
		replaced = true
	} else if l.insert == Append {
		next := make([]T, 0, len(l.items)+1)
		next = append(next, l.items...)
		l.items = append(next, l.clone(x))
	} else {
		next := make([]T, 0, len(l.items)+1)
		next = append(next, l.clone(x))
		l.items = append(next, l.items...)
	}

	if l.focus != nil && l.id(*l.focus) == k {
		l.focus = l.copyPtr(&x)
	}

	l.rev++
	return replaced
}

// RemoveByID deletes the item with id and clears a matching focus slot. Absent ids are a no-op.
func (l *List[T]) RemoveByID(id string) bool {
	return l.RemoveWhere(func(v T) bool { return l.id(v) == id }) > 0
}

// RemoveWhere deletes all matching items, clearing the focus slot if it matches too.
func (l *List[T]) RemoveWhere(match func(T) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]T, 0, len(l.items))
	for _, v := range l.items {
		if !match(v) {
			next = append(next, v)
		}
	}
	removed := len(l.items) - len(next)

	focusHit := l.focus != nil && match(*l.focus)
	if focusHit {
		l.focus = nil
	}

	if removed > 0 || focusHit {
		l.items = next
		l.rev++
	}
	return removed
}

// Patch applies fn to a copy of the item with id and stores the result,
// refreshing a focus slot with the same id. Reports whether the item existed.
func (l *List[T]) Patch(id string, fn func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false
	}

	v := l.clone(l.items[i])
	fn(&v)
	l.upsertLocked(v)
	return true
}

func (l *List[T]) Get(id string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.indexOf(id); i >= 0 {
		return l.clone(l.items[i]), true
	}
	var zero T
	return zero, false
}

func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyItems(l.items)
}

// Filter returns copies of the matching items in collection order.
func (l *List[T]) Filter(pred func(T) bool) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]T, 0)
	for _, v := range l.items {
		if pred(v) {
			out = append(out, l.clone(v))
		}
	}
	return out
}

// Count returns the number of matching items. A nil pred counts everything.
func (l *List[T]) Count(pred func(T) bool) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if pred == nil {
		return len(l.items)
	}
	n := 0
	for _, v := range l.items {
		if pred(v) {
			n++
		}
	}
	return n
}

// Any reports whether at least one item matches.
func (l *List[T]) Any(pred func(T) bool) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, v := range l.items {
		if pred(v) {
			return true
		}
	}
	return false
}

func (l *List[T]) Len() int { return l.Count(nil) }

func (l *List[T]) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rev
}

// SetFocus stores x in the focus slot and upserts it into the collection.
func (l *List[T]) SetFocus(x T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.focus = l.copyPtr(&x)
	l.upsertLocked(x)
}

func (l *List[T]) Focus() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.focus == nil {
		var zero T
		return zero, false
	}
	return l.clone(*l.focus), true
}

func (l *List[T]) ClearFocus() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.focus != nil {
		l.focus = nil
		l.rev++
	}
}

// Clear empties the collection and the focus slot.
func (l *List[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = nil
	l.focus = nil
	l.rev++
}

func (l *List[T]) Snapshot() Snapshot[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot[T]{items: l.copyItems(l.items), focus: l.copyPtr(l.focus)}
}

// Restore puts the collection back to exactly the state captured by s.
func (l *List[T]) Restore(s Snapshot[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = l.copyItems(s.items)
	l.focus = l.copyPtr(s.focus)
	l.rev++
}
