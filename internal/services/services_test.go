package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/repository/api"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/kirinyoku/tix-client/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraph(t *testing.T, h http.HandlerFunc) *Services {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	local := storage.NewMemory()
	stores := NewStores(local, state.Options{})
	client := api.NewClient(api.Config{BaseURL: srv.URL}, nil)
	return NewServices(client, stores, Config{}, nil)
}

func signIn(s *Services) {
	s.Stores.Auth.SetUser(&domain.AuthUser{
		ID:          "u1",
		Email:       "ann@example.com",
		AccessToken: "opaque-token",
		Role:        domain.RoleAdmin,
	})
}

func TestServices_UnauthorizedSignsOutAndRedirects(t *testing.T) {
	s := newGraph(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"message": "jwt expired"},
		})
	})
	signIn(s)
	s.Stores.Orders.SetOrders([]domain.Order{{ID: "o1", UserID: "u1"}})
	s.Navigator.Navigate("/orders")

	_, err := s.Orders.LoadOrders(context.Background())
	require.Error(t, err)

	assert.False(t, s.Auth.IsLoggedIn())
	assert.True(t, s.Stores.Orders.IsEmpty())
	assert.Equal(t, "/login?returnUrl=%2Forders", s.Navigator.CurrentURL())
	assert.False(t, s.Loading.IsLoading())
}

func TestServices_BearerFromSession(t *testing.T) {
	var got string
	s := newGraph(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}})
	})
	signIn(s)

	_, err := s.Events.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer opaque-token", got)
}

func TestStores_LoadRestoresPersistedState(t *testing.T) {
	local := storage.NewMemory()
	first := NewStores(local, state.Options{})
	first.Auth.SetUser(&domain.AuthUser{ID: "u1", Email: "a@b.c", AccessToken: "t", Role: domain.RoleUser})
	first.Cart.AddItem(domain.Event{ID: "e1", AvailableTickets: 3})

	second := NewStores(local, state.Options{})
	require.NoError(t, second.Load(context.Background()))

	assert.True(t, second.Auth.IsLoggedIn())
	assert.Equal(t, 1, second.Cart.Quantity("e1"))
}
