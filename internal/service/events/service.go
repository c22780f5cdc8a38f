package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/service/errmsg"
	"github.com/kirinyoku/tix-client/internal/state"
)

// Gateway is the remote event API.
type Gateway interface {
	List(ctx context.Context) ([]domain.Event, error)
	ListAll(ctx context.Context) ([]domain.Event, error)
	Get(ctx context.Context, id string) (domain.Event, error)
	Create(ctx context.Context, in domain.BaseEvent) (domain.Event, error)
	Update(ctx context.Context, id string, in domain.BaseEvent) (domain.Event, error)
	Delete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]domain.EventHistoryEntry, error)
	Rate(ctx context.Context, id string, value int) (domain.Event, error)
}

type Service struct {
	gw    Gateway
	store *state.EventStore
	run   service.Runner
}

func New(gw Gateway, store *state.EventStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		gw:    gw,
		store: store,
		run: service.Runner{
			Flags:  &service.Flags{},
			Logger: logger.With("service", "events"),
			Overrides: errmsg.Events.With(map[error]string{
				ErrInvalidRating: "Rating must be between 1 and 5.",
				ErrMissingID:     "Event id is required.",
			}),
		},
	}
}

// Store exposes the event collection and its derived views.
func (s *Service) Store() *state.EventStore { return s.store }

func (s *Service) Status() service.Status { return s.run.Flags.Status() }
func (s *Service) ClearError()            { s.run.Flags.ClearError() }
func (s *Service) ClearSuccess()          { s.run.Flags.ClearSuccess() }

// LoadAll replaces the collection with the public event list.
//
// Parameters:
//   - ctx: request-scoped context.
//
// Returns:
//   - []domain.Event: the loaded events, newest first.
//   - error: *service.OpError carrying the user message on failure.
func (s *Service) LoadAll(ctx context.Context) ([]domain.Event, error) {
	const op = "service.events.LoadAll"

	return service.Do(ctx, &s.run, op, service.Load, func(ctx context.Context) ([]domain.Event, error) {
		evs, err := s.gw.List(ctx)
		if err != nil {
			return nil, err
		}
		s.store.SetEvents(evs)
		return s.store.Events(), nil
	})
}

// LoadAllAdmin replaces the collection with every event, soft-deleted ones included.
func (s *Service) LoadAllAdmin(ctx context.Context) ([]domain.Event, error) {
	const op = "service.events.LoadAllAdmin"

	return service.Do(ctx, &s.run, op, service.Load, func(ctx context.Context) ([]domain.Event, error) {
		evs, err := s.gw.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		s.store.SetEvents(evs)
		return s.store.Events(), nil
	})
}

// LoadSingle fetches one event into the focus slot.
func (s *Service) LoadSingle(ctx context.Context, id string) (domain.Event, error) {
	const op = "service.events.LoadSingle"

	return service.Do(ctx, &s.run, op, service.LoadSingle, func(ctx context.Context) (domain.Event, error) {
		if id == "" {
			return domain.Event{}, ErrMissingID
		}
		e, err := s.gw.Get(ctx, id)
		if err != nil {
			return domain.Event{}, err
		}
		s.store.SetSingle(e)
		return e, nil
	})
}

// GetByID fetches one event without touching the store.
func (s *Service) GetByID(ctx context.Context, id string) (domain.Event, error) {
	const op = "service.events.GetByID"

	e, err := s.gw.Get(ctx, id)
	if err != nil {
		return domain.Event{}, s.run.Fail(op, err)
	}
	return e, nil
}

// Create publishes a new event and prepends it to the collection.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the editable event fields.
//
// Returns:
//   - domain.Event: the event as stored by the server.
//   - error: *service.OpError carrying the user message on failure.
func (s *Service) Create(ctx context.Context, in domain.BaseEvent) (domain.Event, error) {
	const op = "service.events.Create"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Event, error) {
		e, err := s.gw.Create(ctx, in)
		if err != nil {
			return domain.Event{}, err
		}
		s.store.Upsert(e)
		return e, nil
	})
}

func (s *Service) Update(ctx context.Context, id string, in domain.BaseEvent) (domain.Event, error) {
	const op = "service.events.Update"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Event, error) {
		e, err := s.gw.Update(ctx, id, in)
		if err != nil {
			return domain.Event{}, err
		}
		s.store.Upsert(e)
		return e, nil
	})
}

// Delete soft-deletes an event on the server and drops it from the collection.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "service.events.Delete"

	return s.run.Exec(ctx, op, service.Operate, func(ctx context.Context) error {
		if err := s.gw.Delete(ctx, id); err != nil {
			return err
		}
		s.store.Remove(id)
		return nil
	})
}

func (s *Service) Restore(ctx context.Context, id string) error {
	const op = "service.events.Restore"

	return s.run.Exec(ctx, op, service.Operate, func(ctx context.Context) error {
		if err := s.gw.Restore(ctx, id); err != nil {
			return err
		}
		s.store.MarkRestored(id)
		return nil
	})
}

// HardDelete removes an event permanently.
func (s *Service) HardDelete(ctx context.Context, id string) error {
	const op = "service.events.HardDelete"

	return s.run.Exec(ctx, op, service.Operate, func(ctx context.Context) error {
		if err := s.gw.HardDelete(ctx, id); err != nil {
			return err
		}
		s.store.Remove(id)
		return nil
	})
}

// Rate submits a 1..5 rating and stores the re-aggregated event.
func (s *Service) Rate(ctx context.Context, id string, value int) (domain.Event, error) {
	const op = "service.events.Rate"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.Event, error) {
		if value < 1 || value > 5 {
			return domain.Event{}, fmt.Errorf("%w: got %d", ErrInvalidRating, value)
		}
		e, err := s.gw.Rate(ctx, id, value)
		if err != nil {
			return domain.Event{}, err
		}
		s.store.Upsert(e)
		return e, nil
	})
}

// History returns the audit trail of an event, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]domain.EventHistoryEntry, error) {
	const op = "service.events.History"

	entries, err := s.gw.History(ctx, id)
	if err != nil {
		return nil, s.run.Fail(op, err)
	}
	return entries, nil
}

func (s *Service) ClearSingle() { s.store.ClearSingle() }

func (s *Service) ClearAll() {
	s.store.Clear()
	s.run.Flags.ClearError()
	s.run.Flags.ClearSuccess()
}
