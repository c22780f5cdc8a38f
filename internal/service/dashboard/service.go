// Package dashboard composes the admin overview from the user, event and
// order collections.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/state"
	"golang.org/x/sync/errgroup"
)

type UserLoader interface {
	LoadUsers(ctx context.Context) ([]domain.AdminUser, error)
}

type EventLoader interface {
	LoadAllAdmin(ctx context.Context) ([]domain.Event, error)
}

type OrderLoader interface {
	LoadOrders(ctx context.Context) ([]domain.Order, error)
}

type Service struct {
	users  UserLoader
	events EventLoader
	orders OrderLoader

	userStore  *state.UserStore
	eventStore *state.EventStore
	orderStore *state.OrderStore

	logger *slog.Logger
	now    func() time.Time
}

func New(
	users UserLoader, userStore *state.UserStore,
	events EventLoader, eventStore *state.EventStore,
	orders OrderLoader, orderStore *state.OrderStore,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		users:      users,
		events:     events,
		orders:     orders,
		userStore:  userStore,
		eventStore: eventStore,
		orderStore: orderStore,
		logger:     logger.With("service", "dashboard"),
		now:        time.Now,
	}
}

// Section names one collection of the overview.
type Section string

const (
	SectionUsers  Section = "users"
	SectionEvents Section = "events"
	SectionOrders Section = "orders"
)

// LoadError reports the sections that failed in one Load. Sections not
// listed were refreshed.
type LoadError struct {
	Failed map[Section]error
}

func (e *LoadError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for sec, err := range e.Failed {
		names = append(names, fmt.Sprintf("%s: %v", sec, err))
	}
	sort.Strings(names)
	return strings.Join(names, "; ")
}

func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// Total reports whether every section failed.
func (e *LoadError) Total() bool {
	return len(e.Failed) == 3
}

// Load refreshes users, all events and orders concurrently. Every load runs
// to completion; a failure in one leaves the others' data in place. The
// returned error, if any, unwraps to a *LoadError.
func (s *Service) Load(ctx context.Context) error {
	const op = "service.dashboard.Load"

	loads := []struct {
		section Section
		run     func() error
	}{
		{SectionUsers, func() error { _, err := s.users.LoadUsers(ctx); return err }},
		{SectionEvents, func() error { _, err := s.events.LoadAllAdmin(ctx); return err }},
		{SectionOrders, func() error { _, err := s.orders.LoadOrders(ctx); return err }},
	}

	var g errgroup.Group
	errs := make([]error, len(loads))
	for i, l := range loads {
		g.Go(func() error {
			errs[i] = l.run()
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[Section]error)
	for i, err := range errs {
		if err != nil {
			failed[loads[i].section] = err
			s.logger.Error("dashboard section failed", "op", op, "section", loads[i].section, "error", err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", op, &LoadError{Failed: failed})
}

// AsLoadError extracts the per-section failures from err.
func AsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// Snapshot is the admin overview for one period.
type Snapshot struct {
	Period      state.Period         `json:"period"`
	Users       state.UserStatistics `json:"users"`
	Events      state.EventStats     `json:"events"`
	Orders      state.OrderKPIs      `json:"orders"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// Snapshot computes the overview from the current collections without any
// network call.
func (s *Service) Snapshot(p state.Period) Snapshot {
	return Snapshot{
		Period:      p,
		Users:       s.userStore.Statistics(),
		Events:      s.eventStore.Stats(),
		Orders:      s.orderStore.KPIs(p),
		GeneratedAt: s.now(),
	}
}
