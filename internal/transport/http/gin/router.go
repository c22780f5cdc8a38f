package httpgin

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/metrics"
	"github.com/kirinyoku/tix-client/internal/repository"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/service/auth"
	"github.com/kirinyoku/tix-client/internal/service/cart"
	"github.com/kirinyoku/tix-client/internal/service/comments"
	"github.com/kirinyoku/tix-client/internal/service/dashboard"
	"github.com/kirinyoku/tix-client/internal/service/errmsg"
	"github.com/kirinyoku/tix-client/internal/service/events"
	"github.com/kirinyoku/tix-client/internal/service/orders"
	"github.com/kirinyoku/tix-client/internal/services"
	"github.com/kirinyoku/tix-client/internal/state"
)

// NewRouter exposes the client state to a view layer under /v.
//
// Parameters:
//   - svcs: the assembled service graph.
//   - login: throttles sign-in attempts; nil disables throttling.
//   - logger: request and failure logging.
//   - middlewares: appended after the built-in chain.
func NewRouter(
	svcs *services.Services,
	login Limiter,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, ok(gin.H{"status": "ok"}))
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := &handlers{svcs: svcs, logger: logger}

	v := r.Group("/v")
	{
		v.GET("/events", h.listEvents)
		v.POST("/events/load", h.reloadEvents)
		v.GET("/events/:id", h.getEvent)
		v.GET("/events/:id/comments", h.listComments)
		v.POST("/comments/:id/like", h.toggleLike)

		v.GET("/cart", h.getCart)
		v.DELETE("/cart", h.clearCart)
		v.POST("/cart/items", h.addCartItem)
		v.PATCH("/cart/items/:id", h.setCartQuantity)
		v.POST("/cart/items/:id/increase", h.increaseCartItem)
		v.POST("/cart/items/:id/decrease", h.decreaseCartItem)
		v.DELETE("/cart/items/:id", h.removeCartItem)
		v.POST("/cart/checkout", h.checkout)

		v.GET("/orders", h.listOrders)
		v.GET("/orders/stats", h.orderStats)
		v.POST("/orders/:id/cancel", h.cancelOrder)
		v.PATCH("/orders/:id/status", h.updateOrderStatus)

		v.GET("/notifications", h.listNotifications)

		v.GET("/session", h.getSession)
		v.POST("/session/login", RateLimit(login, logger), h.login)
		v.POST("/session/logout", h.logout)

		admin := v.Group("/admin", RequireStaff(svcs.Stores.Auth))
		admin.GET("/dashboard", h.dashboard)
	}

	return r
}

type handlers struct {
	svcs   *services.Services
	logger *slog.Logger
}

// --- Events ---

func (h *handlers) listEvents(c *gin.Context) {
	store := h.svcs.Events.Store()
	if store.IsEmpty() {
		if _, err := h.svcs.Events.LoadAll(c.Request.Context()); err != nil {
			respondErr(c, err)
			return
		}
	}

	var list []domain.Event
	switch c.Query("filter") {
	case "upcoming":
		list = store.Upcoming()
	case "past":
		list = store.Past()
	case "available":
		list = store.Available()
	case "soldout":
		list = store.SoldOut()
	case "top":
		list = store.TopRated(parseIntDefault(c.Query("limit"), 5))
	default:
		list = store.Active()
	}

	list = narrow(list, c.Query("q"), func(e domain.Event, q string) bool {
		return strings.Contains(strings.ToLower(e.Title), strings.ToLower(q))
	})
	list = narrow(list, c.Query("genre"), func(e domain.Event, g string) bool {
		return strings.EqualFold(e.Genre, g)
	})
	list = narrow(list, c.Query("country"), func(e domain.Event, v string) bool {
		return strings.EqualFold(e.Country, v)
	})

	writeView(c, list)
}

func (h *handlers) reloadEvents(c *gin.Context) {
	list, err := h.svcs.Events.LoadAll(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(list))
}

func (h *handlers) getEvent(c *gin.Context) {
	e, err := h.svcs.Events.LoadSingle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeView(c, e)
}

// --- Comments ---

func (h *handlers) listComments(c *gin.Context) {
	list, err := h.svcs.Comments.LoadForEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notifyErr(err)
		respondErr(c, err)
		return
	}
	writeView(c, list)
}

func (h *handlers) toggleLike(c *gin.Context) {
	cm, err := h.svcs.Comments.ToggleLike(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notifyErr(err)
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(cm))
}

// --- Cart ---

func (h *handlers) cartView() CartView {
	store := h.svcs.Cart.Store()
	return CartView{
		Items:        store.Items(),
		ItemsCount:   store.ItemsCount(),
		UniqueEvents: store.UniqueEventsCount(),
		TotalPrice:   store.TotalPrice(),
		Validation:   store.Validate(),
		Status:       h.svcs.Cart.Status(),
	}
}

func (h *handlers) getCart(c *gin.Context) {
	writeView(c, h.cartView())
}

func (h *handlers) clearCart(c *gin.Context) {
	h.svcs.Cart.Clear()
	c.JSON(http.StatusOK, ok(h.cartView()))
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Please check your input.")
		return
	}

	e, found := h.svcs.Events.Store().ByID(req.EventID)
	if !found {
		fetched, err := h.svcs.Events.GetByID(c.Request.Context(), req.EventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		e = fetched
	}

	if err := h.svcs.Cart.Add(e); err != nil {
		h.notifyErr(err)
		respondErr(c, err)
		return
	}
	h.svcs.Notifications.Success("Event added to cart.")
	c.JSON(http.StatusOK, ok(h.cartView()))
}

func (h *handlers) setCartQuantity(c *gin.Context) {
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Please check your input.")
		return
	}
	if err := h.svcs.Cart.SetQuantity(c.Param("id"), *req.Quantity); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(h.cartView()))
}

func (h *handlers) increaseCartItem(c *gin.Context) {
	if err := h.svcs.Cart.Increase(c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(h.cartView()))
}

func (h *handlers) decreaseCartItem(c *gin.Context) {
	h.svcs.Cart.Decrease(c.Param("id"))
	c.JSON(http.StatusOK, ok(h.cartView()))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	h.svcs.Cart.Remove(c.Param("id"))
	h.svcs.Notifications.Success("Event removed from cart.")
	c.JSON(http.StatusOK, ok(h.cartView()))
}

func (h *handlers) checkout(c *gin.Context) {
	if h.svcs.Cart.Store().IsEmpty() {
		h.svcs.Notifications.Error("No events selected.")
		badRequest(c, "No events selected.")
		return
	}
	if !h.svcs.Auth.IsLoggedIn() {
		msg := "You need to be logged in to complete booking."
		h.svcs.Notifications.Error(msg)
		h.svcs.Navigator.NavigateToLogin("/cart")
		c.JSON(http.StatusUnauthorized, failure(msg))
		return
	}

	order, err := h.svcs.Cart.Checkout(c.Request.Context())
	if err != nil {
		if errors.Is(err, cart.ErrCartAdjusted) {
			h.svcs.Notifications.Warning(err.Error())
		} else {
			h.svcs.Notifications.Error("Failed to complete booking. Please try again.")
		}
		respondErr(c, err)
		return
	}

	h.svcs.Notifications.Success("Booking completed successfully")
	c.JSON(http.StatusCreated, ok(CheckoutResponse{Order: order}))
}

// --- Orders ---

func (h *handlers) listOrders(c *gin.Context) {
	if _, err := h.svcs.Orders.LoadIfNeeded(c.Request.Context()); err != nil {
		respondErr(c, err)
		return
	}

	store := h.svcs.Orders.Store()
	list := store.Orders()
	if st := domain.OrderStatus(c.Query("status")); st != "" {
		list = store.ByStatus(st)
	}

	writeView(c, OrdersView{Orders: list, Status: h.svcs.Orders.Status()})
}

func (h *handlers) orderStats(c *gin.Context) {
	writeView(c, h.svcs.Orders.Store().Statistics())
}

func (h *handlers) cancelOrder(c *gin.Context) {
	o, err := h.svcs.Orders.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notifyErr(err)
		respondErr(c, err)
		return
	}
	h.svcs.Notifications.Success("Order cancelled.")
	c.JSON(http.StatusOK, ok(o))
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Please check your input.")
		return
	}

	o, err := h.svcs.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.notifyErr(err)
		respondErr(c, err)
		return
	}
	h.svcs.Notifications.Success("Order status updated.")
	c.JSON(http.StatusOK, ok(o))
}

// --- Admin ---

func (h *handlers) dashboard(c *gin.Context) {
	view := DashboardView{}
	if err := h.svcs.Dashboard.Load(c.Request.Context()); err != nil {
		le, partial := dashboard.AsLoadError(err)
		if !partial || le.Total() {
			respondErr(c, err)
			return
		}
		view.Errors = make(map[dashboard.Section]string, len(le.Failed))
		for sec, serr := range le.Failed {
			view.Errors[sec] = userMessage(serr)
		}
	}
	view.Snapshot = h.svcs.Dashboard.Snapshot(state.ParsePeriod(c.Query("period")))
	writeView(c, view)
}

// --- UI ---

func (h *handlers) listNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, ok(h.svcs.Notifications.List()))
}

// --- Session ---

func (h *handlers) sessionView() SessionView {
	u, loggedIn := h.svcs.Auth.User()
	if !loggedIn {
		return SessionView{}
	}
	return SessionView{
		LoggedIn: true,
		UserID:   u.ID,
		Email:    u.Email,
		Role:     u.Role,
		IsStaff:  u.Role.IsStaff(),
	}
}

func (h *handlers) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, ok(h.sessionView()))
}

func (h *handlers) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required.")
		return
	}

	if _, err := h.svcs.Auth.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		h.notifyErr(err)
		respondErr(c, err)
		return
	}
	h.svcs.Notifications.Success("Successfully logged in.")
	c.JSON(http.StatusOK, ok(h.sessionView()))
}

func (h *handlers) logout(c *gin.Context) {
	h.svcs.Auth.Logout(c.Request.Context(), true)
	c.JSON(http.StatusOK, ok(h.sessionView()))
}

// --- Helpers ---

func (h *handlers) notifyErr(err error) {
	h.svcs.Notifications.Error(userMessage(err))
}

func narrow[T any](xs []T, q string, match func(T, string) bool) []T {
	q = strings.TrimSpace(q)
	if q == "" {
		return xs
	}
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if match(x, q) {
			out = append(out, x)
		}
	}
	return out
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, failure(msg))
}

var localStatus = []struct {
	err    error
	status int
}{
	{orders.ErrOrderFinal, http.StatusConflict},
	{orders.ErrStatusUnchanged, http.StatusConflict},
	{orders.ErrUseCancel, http.StatusBadRequest},
	{orders.ErrInvalidStatus, http.StatusBadRequest},
	{orders.ErrEmptyOrder, http.StatusBadRequest},
	{cart.ErrEventDeleted, http.StatusConflict},
	{cart.ErrCartAdjusted, http.StatusConflict},
	{cart.ErrItemNotFound, http.StatusNotFound},
	{cart.ErrEmptyCart, http.StatusBadRequest},
	{comments.ErrEmptyText, http.StatusBadRequest},
	{comments.ErrNotLoaded, http.StatusNotFound},
	{comments.ErrNoEventLoaded, http.StatusConflict},
	{events.ErrInvalidRating, http.StatusBadRequest},
	{events.ErrMissingID, http.StatusBadRequest},
	{auth.ErrMissingCredentials, http.StatusBadRequest},
	{auth.ErrInvalidSession, http.StatusBadGateway},
}

var remoteStatus = []struct {
	err    error
	status int
}{
	{repository.ErrBadRequest, http.StatusBadRequest},
	{repository.ErrUnauthorized, http.StatusUnauthorized},
	{repository.ErrForbidden, http.StatusForbidden},
	{repository.ErrNotFound, http.StatusNotFound},
	{repository.ErrConflict, http.StatusConflict},
	{repository.ErrValidation, http.StatusUnprocessableEntity},
	{repository.ErrUnavailable, http.StatusServiceUnavailable},
}

func statusOf(err error) int {
	var avail *cart.AvailabilityError
	if errors.As(err, &avail) {
		return http.StatusConflict
	}
	for _, m := range localStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	for _, m := range remoteStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	if errors.Is(err, repository.ErrNetwork) ||
		errors.Is(err, repository.ErrServer) ||
		errors.Is(err, repository.ErrUnexpected) ||
		errors.Is(err, repository.ErrEnvelope) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func userMessage(err error) string {
	var oe *service.OpError
	if errors.As(err, &oe) && oe.Message != "" {
		return oe.Message
	}
	return errmsg.Message(err, errmsg.Overrides{})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(statusOf(err), failure(userMessage(err)))
}
