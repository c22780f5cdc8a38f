// Package services assembles every store and orchestration service around one
// API client and wires the hooks that cross service boundaries.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirinyoku/tix-client/internal/repository/api"
	"github.com/kirinyoku/tix-client/internal/service/auth"
	"github.com/kirinyoku/tix-client/internal/service/cart"
	"github.com/kirinyoku/tix-client/internal/service/comments"
	"github.com/kirinyoku/tix-client/internal/service/dashboard"
	"github.com/kirinyoku/tix-client/internal/service/events"
	"github.com/kirinyoku/tix-client/internal/service/orders"
	"github.com/kirinyoku/tix-client/internal/service/users"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/kirinyoku/tix-client/internal/storage"
	"github.com/kirinyoku/tix-client/internal/ui"
)

type Stores struct {
	Events   *state.EventStore
	Orders   *state.OrderStore
	Users    *state.UserStore
	Comments *state.CommentStore
	Cart     *state.CartStore
	Auth     *state.AuthStore
}

func NewStores(local storage.Local, opts state.Options) *Stores {
	return &Stores{
		Events:   state.NewEventStore(opts),
		Orders:   state.NewOrderStore(opts),
		Users:    state.NewUserStore(opts),
		Comments: state.NewCommentStore(opts),
		Cart:     state.NewCartStore(local, opts),
		Auth:     state.NewAuthStore(local, opts),
	}
}

// Load restores the persisted session and cart.
func (s *Stores) Load(ctx context.Context) error {
	const op = "services.Stores.Load"

	if err := s.Auth.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Cart.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type Services struct {
	Stores        *Stores
	Loading       *ui.Loading
	Notifications *ui.Notifications
	Navigator     *ui.Navigator

	Events    *events.Service
	Orders    *orders.Service
	Users     *users.Service
	Comments  *comments.Service
	Cart      *cart.Service
	Auth      *auth.Service
	Dashboard *dashboard.Service
}

type Config struct {
	NotifyDefault time.Duration
}

// NewServices builds the service graph on top of client. The client is bound to
// the auth store for bearer credentials and to Auth.HandleUnauthorized for 401
// responses. Signing out empties every collection that belongs to the user.
//
// Parameters:
//   - client: the shared API client; its session and 401 hook are replaced.
//   - stores: state containers, usually from NewStores.
//   - cfg: notification settings.
//   - logger: base logger; each service derives its own.
func NewServices(client *api.Client, stores *Stores, cfg Config, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	repos := api.NewStore(client)
	nav := ui.NewNavigator("/")

	s := &Services{
		Stores:        stores,
		Loading:       ui.NewLoading(),
		Notifications: ui.NewNotifications(cfg.NotifyDefault, logger),
		Navigator:     nav,
	}

	s.Events = events.New(repos.Events(), stores.Events, logger)
	s.Orders = orders.New(repos.Orders(), stores.Orders, stores.Auth, logger)
	s.Users = users.New(repos.Users(), stores.Users, logger)
	s.Comments = comments.New(repos.Comments(), stores.Comments, logger)
	s.Cart = cart.New(stores.Cart, s.Events, s.Orders, logger)
	s.Auth = auth.New(repos.Auth(), stores.Auth, nav, logger)
	s.Dashboard = dashboard.New(
		s.Users, stores.Users,
		s.Events, stores.Events,
		s.Orders, stores.Orders,
		logger,
	)

	client.SetSession(stores.Auth)
	client.SetLoading(s.Loading)
	client.OnUnauthorized(s.Auth.HandleUnauthorized)

	s.Auth.OnSignOut(func(string) {
		s.Orders.ClearAll()
		s.Comments.ClearComments()
		s.Users.ClearUsers()
	})

	return s
}
