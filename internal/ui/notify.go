package ui

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-client/internal/metrics"
)

type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
)

const (
	successDuration = 2500 * time.Millisecond
	errorDuration   = 3000 * time.Millisecond
)

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Duration  time.Duration    `json:"duration"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Notifications is a queue of transient messages. Each entry with a positive
// duration is dismissed automatically when its timer fires.
type Notifications struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]*time.Timer
	fallback time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewNotifications returns an empty queue. fallback is used for Warning and
// Info, and for Show with a non-positive duration.
func NewNotifications(fallback time.Duration, logger *slog.Logger) *Notifications {
	if fallback <= 0 {
		fallback = 3 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifications{
		timers:   make(map[string]*time.Timer),
		fallback: fallback,
		logger:   logger.With("component", "notifications"),
		now:      time.Now,
	}
}

// Show enqueues a message and returns its id.
func (n *Notifications) Show(kind NotificationType, msg string, d time.Duration) string {
	if d <= 0 {
		d = n.fallback
	}
	note := Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Message:   msg,
		Duration:  d,
		CreatedAt: n.now(),
	}

	n.mu.Lock()
	n.items = append(n.items, note)
	n.timers[note.ID] = time.AfterFunc(d, func() { n.Remove(note.ID) })
	n.mu.Unlock()

	metrics.Notification(string(kind))
	n.logger.Debug("notification", "type", kind, "message", msg)
	return note.ID
}

func (n *Notifications) Success(msg string) string {
	return n.Show(NotifySuccess, msg, successDuration)
}

func (n *Notifications) Error(msg string) string {
	return n.Show(NotifyError, msg, errorDuration)
}

func (n *Notifications) Warning(msg string) string {
	return n.Show(NotifyWarning, msg, n.fallback)
}

func (n *Notifications) Info(msg string) string {
	return n.Show(NotifyInfo, msg, n.fallback)
}

// Remove dismisses id. Unknown ids are ignored.
func (n *Notifications) Remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, it := range n.items {
		if it.ID == id {
			n.items = append(n.items[:i:i], n.items[i+1:]...)
			return
		}
	}
}

func (n *Notifications) ClearAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
	n.items = nil
}

// List returns the visible notifications, oldest first.
func (n *Notifications) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}
