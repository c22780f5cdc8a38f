package comments

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/service/errmsg"
	"github.com/kirinyoku/tix-client/internal/state"
)

// Gateway is the remote comment API.
type Gateway interface {
	ListForEvent(ctx context.Context, eventID string) ([]domain.EventComment, error)
	Add(ctx context.Context, eventID, text string) (domain.EventComment, error)
	Update(ctx context.Context, id, text string) (domain.EventComment, error)
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id string) (domain.EventComment, error)
	Restore(ctx context.Context, id string) (domain.EventComment, error)
	History(ctx context.Context, id string) ([]domain.CommentHistoryEntry, error)
}

type Service struct {
	gw    Gateway
	store *state.CommentStore
	run   service.Runner
}

func New(gw Gateway, store *state.CommentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		gw:    gw,
		store: store,
		run: service.Runner{
			Flags:  &service.Flags{},
			Logger: logger.With("service", "comments"),
			Overrides: errmsg.Comments.With(map[error]string{
				ErrEmptyText:     "Comment cannot be empty.",
				ErrNotLoaded:     "Comment not found.",
				ErrNoEventLoaded: "No event selected.",
			}),
		},
	}
}

func (s *Service) Store() *state.CommentStore { return s.store }

func (s *Service) Status() service.Status { return s.run.Flags.Status() }
func (s *Service) ClearError()            { s.run.Flags.ClearError() }
func (s *Service) ClearSuccess()          { s.run.Flags.ClearSuccess() }

// LoadForEvent replaces the thread with the comments of eventID, oldest first.
func (s *Service) LoadForEvent(ctx context.Context, eventID string) ([]domain.EventComment, error) {
	const op = "service.comments.LoadForEvent"

	return service.Do(ctx, &s.run, op, service.Load, func(ctx context.Context) ([]domain.EventComment, error) {
		list, err := s.gw.ListForEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		s.store.SetComments(eventID, list)
		return s.store.Comments(), nil
	})
}

// Add posts a comment on the current thread's event and appends it.
func (s *Service) Add(ctx context.Context, text string) (domain.EventComment, error) {
	const op = "service.comments.Add"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.EventComment, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return domain.EventComment{}, ErrEmptyText
		}
		eventID := s.store.CurrentEventID()
		if eventID == "" {
			return domain.EventComment{}, ErrNoEventLoaded
		}
		c, err := s.gw.Add(ctx, eventID, text)
		if err != nil {
			return domain.EventComment{}, err
		}
		s.store.Add(c)
		return c, nil
	})
}

func (s *Service) Update(ctx context.Context, id, text string) (domain.EventComment, error) {
	const op = "service.comments.Update"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.EventComment, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return domain.EventComment{}, ErrEmptyText
		}
		c, err := s.gw.Update(ctx, id, text)
		if err != nil {
			return domain.EventComment{}, err
		}
		s.store.Upsert(c)
		return c, nil
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "service.comments.Delete"

	return s.run.Exec(ctx, op, service.Operate, func(ctx context.Context) error {
		if err := s.gw.Delete(ctx, id); err != nil {
			return err
		}
		s.store.Remove(id)
		return nil
	})
}

func (s *Service) Restore(ctx context.Context, id string) (domain.EventComment, error) {
	const op = "service.comments.Restore"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.EventComment, error) {
		c, err := s.gw.Restore(ctx, id)
		if err != nil {
			return domain.EventComment{}, err
		}
		s.store.Upsert(c)
		return c, nil
	})
}

// ToggleLike flips the user's like immediately and confirms it remotely. On
// failure the thread is restored to exactly its state before the toggle.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of a comment in the current thread.
//
// Returns:
//   - domain.EventComment: the comment as reported by the server.
//   - error: comments.ErrNotLoaded when id is not in the thread, or the classified remote failure.
func (s *Service) ToggleLike(ctx context.Context, id string) (domain.EventComment, error) {
	const op = "service.comments.ToggleLike"

	s.run.Flags.ClearError()

	snap, ok := s.store.ToggleLikeOptimistic(id)
	if !ok {
		return domain.EventComment{}, s.run.Fail(op, ErrNotLoaded)
	}

	c, err := s.gw.ToggleLike(ctx, id)
	if err != nil {
		s.store.Rollback(snap)
		s.run.Logger.Warn("like rolled back", "op", op, "comment_id", id)
		return domain.EventComment{}, s.run.Fail(op, err)
	}

	if c.ID == id {
		s.store.Upsert(c)
	}
	current, _ := s.store.ByID(id)
	return current, nil
}

func (s *Service) History(ctx context.Context, id string) ([]domain.CommentHistoryEntry, error) {
	const op = "service.comments.History"

	entries, err := s.gw.History(ctx, id)
	if err != nil {
		return nil, s.run.Fail(op, err)
	}
	return entries, nil
}

func (s *Service) ClearComments() {
	s.store.Clear()
	s.run.Flags.ClearError()
	s.run.Flags.ClearSuccess()
}
