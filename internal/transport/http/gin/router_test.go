package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/repository/api"
	redisrepo "github.com/kirinyoku/tix-client/internal/repository/redis"
	"github.com/kirinyoku/tix-client/internal/services"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/kirinyoku/tix-client/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type backend struct {
	calls atomic.Int32
	mux   *http.ServeMux
}

func newBackend() *backend {
	b := &backend{mux: http.NewServeMux()}
	b.mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []any{
			map[string]any{"_id": "e1", "title": "Jazz Night", "genre": "jazz", "price": 20, "totalTickets": 10, "availableTickets": 2},
			map[string]any{"_id": "e2", "title": "Rock Fest", "genre": "rock", "price": 35, "totalTickets": 10, "availableTickets": 0},
		})
	})
	b.mux.HandleFunc("/events/e3", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"_id": "e3", "title": "Opera", "price": 50, "totalTickets": 5, "availableTickets": 5})
	})
	return b
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.calls.Add(1)
	b.mux.ServeHTTP(w, r)
}

func reply(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

type fakeLimiter struct{ decision redisrepo.Decision }

func (f fakeLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	return f.decision, nil
}

func setup(t *testing.T, login Limiter) (*gin.Engine, *services.Services, *backend) {
	t.Helper()
	b := newBackend()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	stores := services.NewStores(storage.NewMemory(), state.Options{})
	client := api.NewClient(api.Config{BaseURL: srv.URL}, nil)
	svcs := services.NewServices(client, stores, services.Config{NotifyDefault: time.Minute}, nil)
	t.Cleanup(svcs.Notifications.ClearAll)

	return NewRouter(svcs, login, nil), svcs, b
}

func do(r http.Handler, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelopeOf[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *ErrorBody `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelopeOf[T] {
	t.Helper()
	var env envelopeOf[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestRouter_Healthz(t *testing.T) {
	r, _, _ := setup(t, nil)
	w := do(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[map[string]string](t, w).Success)
}

func TestRouter_EventsLoadOnceAndFilter(t *testing.T) {
	r, _, b := setup(t, nil)

	w := do(r, http.MethodGet, "/v/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Event](t, w).Data, 2)

	w = do(r, http.MethodGet, "/v/events?filter=available&genre=JAZZ", nil)
	list := decode[[]domain.Event](t, w).Data
	require.Len(t, list, 1)
	assert.Equal(t, "e1", list[0].ID)

	assert.Equal(t, int32(1), b.calls.Load())
}

func TestRouter_ViewsHonourETag(t *testing.T) {
	r, _, _ := setup(t, nil)

	w := do(r, http.MethodGet, "/v/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = do(r, http.MethodGet, "/v/cart", nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestRouter_AddToCartFetchesUnknownEvent(t *testing.T) {
	r, svcs, _ := setup(t, nil)

	w := do(r, http.MethodPost, "/v/cart/items", AddCartItemRequest{EventID: "e3"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := decode[CartView](t, w).Data
	assert.Equal(t, 1, view.ItemsCount)
	assert.True(t, decimal.NewFromInt(50).Equal(view.TotalPrice))

	notes := svcs.Notifications.List()
	require.NotEmpty(t, notes)
	assert.Equal(t, "Event added to cart.", notes[len(notes)-1].Message)
}

func TestRouter_AddBeyondAvailabilityConflicts(t *testing.T) {
	r, svcs, _ := setup(t, nil)
	svcs.Stores.Events.SetEvents([]domain.Event{{ID: "e1", Price: decimal.NewFromInt(20), TotalTickets: 10, AvailableTickets: 1}})

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v/cart/items", AddCartItemRequest{EventID: "e1"}).Code)

	w := do(r, http.MethodPost, "/v/cart/items", AddCartItemRequest{EventID: "e1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cannot add more tickets. Only 1 available.", decode[any](t, w).Error.Message)
}

func TestRouter_CheckoutRequiresSession(t *testing.T) {
	r, svcs, _ := setup(t, nil)
	svcs.Stores.Cart.AddItem(domain.Event{ID: "e1", AvailableTickets: 3})

	w := do(r, http.MethodPost, "/v/cart/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login?returnUrl=%2Fcart", svcs.Navigator.CurrentURL())
	assert.Equal(t, 1, svcs.Stores.Cart.ItemsCount())
}

func TestRouter_CheckoutEmptyCart(t *testing.T) {
	r, _, _ := setup(t, nil)
	w := do(r, http.MethodPost, "/v/cart/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No events selected.", decode[any](t, w).Error.Message)
}

func TestRouter_FinalOrderRejectedWithoutBackendCall(t *testing.T) {
	r, svcs, b := setup(t, nil)
	svcs.Stores.Orders.SetOrders([]domain.Order{{ID: "o1", Status: domain.StatusCompleted}})

	w := do(r, http.MethodPatch, "/v/orders/o1/status", UpdateStatusRequest{Status: domain.StatusPending})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "This order is final and can no longer be changed.", decode[any](t, w).Error.Message)

	w = do(r, http.MethodPost, "/v/orders/o1/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Zero(t, b.calls.Load())
}

func TestRouter_DashboardRequiresStaff(t *testing.T) {
	r, svcs, _ := setup(t, nil)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/v/admin/dashboard", nil).Code)

	svcs.Stores.Auth.SetUser(&domain.AuthUser{ID: "u1", Email: "u@x.y", AccessToken: "t", Role: domain.RoleUser})
	w := do(r, http.MethodGet, "/v/admin/dashboard", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have permission to access this page.", decode[any](t, w).Error.Message)
}

func TestRouter_DashboardServesLoadedSections(t *testing.T) {
	r, svcs, b := setup(t, nil)
	b.mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []any{
			map[string]any{"_id": "u1", "email": "a@x.y", "role": "admin"},
			map[string]any{"_id": "u2", "email": "b@x.y", "role": "user"},
		})
	})
	b.mux.HandleFunc("/events/all", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []any{
			map[string]any{"_id": "e1", "title": "Jazz Night", "price": 20, "totalTickets": 10, "availableTickets": 4},
		})
	})
	// /orders is not routed, so the orders section fails with a 404.
	svcs.Stores.Auth.SetUser(&domain.AuthUser{ID: "u1", Email: "a@x.y", AccessToken: "t", Role: domain.RoleAdmin})

	w := do(r, http.MethodGet, "/v/admin/dashboard?period=7d", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decode[map[string]any](t, w)
	assert.True(t, env.Success)
	users := env.Data["users"].(map[string]any)
	assert.EqualValues(t, 2, users["total"])
	errs := env.Data["errors"].(map[string]any)
	assert.Len(t, errs, 1)
	assert.NotEmpty(t, errs["orders"])
	assert.Equal(t, int32(3), b.calls.Load())
}

func TestRouter_LoginThrottled(t *testing.T) {
	r, _, b := setup(t, fakeLimiter{decision: redisrepo.Decision{RetryAfter: 1500 * time.Millisecond}})

	w := do(r, http.MethodPost, "/v/session/login", LoginRequest{Email: "a@b.c", Password: "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Zero(t, b.calls.Load())
}

func TestRouter_SessionHidesToken(t *testing.T) {
	r, svcs, _ := setup(t, nil)
	svcs.Stores.Auth.SetUser(&domain.AuthUser{ID: "u1", Email: "a@b.c", AccessToken: "secret", Role: domain.RoleAdmin})

	w := do(r, http.MethodGet, "/v/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	view := decode[SessionView](t, w).Data
	assert.True(t, view.LoggedIn)
	assert.True(t, view.IsStaff)
}
