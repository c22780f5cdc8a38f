package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tix-client/internal/config"
	"github.com/kirinyoku/tix-client/internal/redis"
	"github.com/kirinyoku/tix-client/internal/repository/api"
	redisrepo "github.com/kirinyoku/tix-client/internal/repository/redis"
	"github.com/kirinyoku/tix-client/internal/services"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/kirinyoku/tix-client/internal/storage"
	httpgin "github.com/kirinyoku/tix-client/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	services   *services.Services
	rdb        *goredis.Client
	feed       *redisrepo.ChangeFeed
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	local, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.setup(ctx, local); err != nil {
		return nil, err
	}

	return a, nil
}

// setup restores local state and builds the services and HTTP server on top
// of local. The Redis client, if any, is closed when setup fails.
func (a *App) setup(ctx context.Context, local storage.Local) (err error) {
	defer func() {
		if err == nil {
			return
		}
		if cerr := a.closeRedis(); cerr != nil {
			a.logger.Warn("failed to close redis", "error", cerr)
		}
	}()

	stores := services.NewStores(local, state.Options{Logger: a.logger})
	if err := stores.Load(ctx); err != nil {
		return fmt.Errorf("failed to restore local state: %w", err)
	}

	client := api.NewClient(api.Config{BaseURL: a.cfg.API.BaseURL, Timeout: a.cfg.API.Timeout}, a.logger)
	a.services = services.NewServices(client, stores, services.Config{NotifyDefault: a.cfg.Notify.Default}, a.logger)

	var login httpgin.Limiter
	if a.rdb != nil {
		login = redisrepo.NewSlidingWindowLimiter(a.rdb, "login", a.cfg.Login.Limit, a.cfg.Login.Window)
	}

	router := httpgin.NewRouter(a.services, login, a.logger)

	a.httpServer = &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

func (a *App) closeRedis() error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}

func (a *App) openStorage(ctx context.Context) (storage.Local, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StorageRedis:
		rdb, err := redis.New(ctx, redis.Config{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.rdb = rdb
		a.feed = redisrepo.NewChangeFeed(rdb, a.cfg.Storage.Profile)
		return redisrepo.NewLocalStore(rdb, a.cfg.Storage.Profile, redisrepo.WithFeed(a.feed)), nil
	default:
		local, err := storage.NewFile(a.cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return local, nil
	}
}

// reload refreshes the store backed by key after another client changed it.
func (a *App) reload(ctx context.Context, key string) {
	var err error
	switch key {
	case storage.KeyCart:
		err = a.services.Stores.Cart.Load(ctx)
	case storage.KeyUser:
		wasLoggedIn := a.services.Auth.IsLoggedIn()
		err = a.services.Stores.Auth.Load(ctx)
		if err == nil && wasLoggedIn && !a.services.Auth.IsLoggedIn() {
			a.services.Auth.QuickLogout(a.services.Navigator.CurrentURL())
		}
	default:
		return
	}
	if err != nil {
		a.logger.Warn("failed to reload shared state", "key", key, "error", err)
		return
	}
	a.logger.Debug("reloaded shared state", "key", key)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.httpServer.Addr, "api", a.cfg.API.BaseURL)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if a.feed != nil {
		g.Go(func() error {
			err := a.feed.Subscribe(gCtx, a.reload)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("change feed stopped: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.httpServer.Shutdown(ctx)
		a.services.Notifications.ClearAll()
		if cerr := a.closeRedis(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	})

	return g.Wait()
}
