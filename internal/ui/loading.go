// Package ui holds the collaborators a view layer observes: the global
// loading indicator, the notification queue and the navigator.
package ui

import (
	"sync"

	"github.com/kirinyoku/tix-client/internal/metrics"
)

// Loading counts in-flight requests. Hide never drives the counter below zero.
type Loading struct {
	mu      sync.Mutex
	pending int
}

func NewLoading() *Loading { return &Loading{} }

func (l *Loading) Show() {
	l.mu.Lock()
	l.pending++
	n := l.pending
	l.mu.Unlock()
	metrics.SetInflight(n)
}

func (l *Loading) Hide() {
	l.mu.Lock()
	if l.pending > 0 {
		l.pending--
	}
	n := l.pending
	l.mu.Unlock()
	metrics.SetInflight(n)
}

func (l *Loading) Reset() {
	l.mu.Lock()
	l.pending = 0
	l.mu.Unlock()
	metrics.SetInflight(0)
}

func (l *Loading) IsLoading() bool { return l.Pending() > 0 }

func (l *Loading) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}
