package api

import (
	"net/url"
	"slices"
	"time"
)

// Store hands out per-resource gateways sharing one Client.
type Store struct {
	client *Client
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

func (s *Store) Events() *EventRepo     { return &EventRepo{c: s.client} }
func (s *Store) Orders() *OrderRepo     { return &OrderRepo{c: s.client} }
func (s *Store) Users() *UserRepo       { return &UserRepo{c: s.client} }
func (s *Store) Comments() *CommentRepo { return &CommentRepo{c: s.client} }
func (s *Store) Auth() *AuthRepo        { return &AuthRepo{c: s.client} }

func pathID(id string) string {
	return url.PathEscape(id)
}

func sortByTime[T any](xs []T, at func(T) time.Time, desc bool) {
	slices.SortStableFunc(xs, func(a, b T) int {
		if desc {
			return at(b).Compare(at(a))
		}
		return at(a).Compare(at(b))
	})
}
