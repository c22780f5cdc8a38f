package ui

import (
	"net/url"
	"sync"
)

const LoginPath = "/login"

// Navigator tracks the current location of the view layer. Observers read it
// through the transport; redirects only move the pointer.
type Navigator struct {
	mu      sync.RWMutex
	current string
}

func NewNavigator(start string) *Navigator {
	if start == "" {
		start = "/"
	}
	return &Navigator{current: start}
}

func (n *Navigator) CurrentURL() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.current = path
	n.mu.Unlock()
}

// NavigateToLogin redirects to the login page, carrying returnURL so the user
// can be sent back after signing in.
func (n *Navigator) NavigateToLogin(returnURL string) {
	target := LoginPath
	if returnURL != "" && !IsLoginURL(returnURL) {
		target += "?returnUrl=" + url.QueryEscape(returnURL)
	}
	n.Navigate(target)
}

// IsLoginURL reports whether u points at the login page.
func IsLoginURL(u string) bool {
	p, err := url.Parse(u)
	if err != nil {
		return false
	}
	return p.Path == LoginPath
}
