package users

import (
	"context"
	"io"
	"log/slog"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/service/errmsg"
	"github.com/kirinyoku/tix-client/internal/state"
)

// Gateway is the remote user administration API.
type Gateway interface {
	List(ctx context.Context) ([]domain.AdminUser, error)
	UpdateRole(ctx context.Context, id string, role domain.UserRole) (domain.AdminUser, error)
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

type Service struct {
	gw    Gateway
	store *state.UserStore
	run   service.Runner
}

func New(gw Gateway, store *state.UserStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		gw:    gw,
		store: store,
		run: service.Runner{
			Flags:  &service.Flags{},
			Logger: logger.With("service", "users"),
			Overrides: errmsg.Users.With(map[error]string{
				ErrInvalidRole: "Unknown user role.",
			}),
		},
	}
}

func (s *Service) Store() *state.UserStore { return s.store }

func (s *Service) Status() service.Status { return s.run.Flags.Status() }
func (s *Service) ClearError()            { s.run.Flags.ClearError() }
func (s *Service) ClearSuccess()          { s.run.Flags.ClearSuccess() }

func (s *Service) LoadUsers(ctx context.Context) ([]domain.AdminUser, error) {
	const op = "service.users.LoadUsers"

	return service.Do(ctx, &s.run, op, service.Load, func(ctx context.Context) ([]domain.AdminUser, error) {
		users, err := s.gw.List(ctx)
		if err != nil {
			return nil, err
		}
		s.store.SetUsers(users)
		return s.store.Users(), nil
	})
}

// UpdateRole changes a user's role. Fields the server omits from its reply
// keep their stored values.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the user to change.
//   - role: the new role.
//
// Returns:
//   - domain.AdminUser: the stored user after the change.
//   - error: users.ErrInvalidRole for an unknown role, or the classified remote failure.
func (s *Service) UpdateRole(ctx context.Context, id string, role domain.UserRole) (domain.AdminUser, error) {
	const op = "service.users.UpdateRole"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.AdminUser, error) {
		if !role.Valid() {
			return domain.AdminUser{}, ErrInvalidRole
		}
		u, err := s.gw.UpdateRole(ctx, id, role)
		if err != nil {
			return domain.AdminUser{}, err
		}
		s.store.MergeRoleUpdate(u)
		merged, _ := s.store.ByID(u.ID)
		return merged, nil
	})
}

// SoftDelete deactivates a user. The record stays listed as deleted.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	const op = "service.users.SoftDelete"

	return s.run.Exec(ctx, op, service.Operate, func(ctx context.Context) error {
		if err := s.gw.SoftDelete(ctx, id); err != nil {
			return err
		}
		s.store.MarkDeleted(id)
		return nil
	})
}

func (s *Service) Restore(ctx context.Context, id string) error {
	const op = "service.users.Restore"

	return s.run.Exec(ctx, op, service.Operate, func(ctx context.Context) error {
		if err := s.gw.Restore(ctx, id); err != nil {
			return err
		}
		s.store.MarkRestored(id)
		return nil
	})
}

func (s *Service) ClearUsers() {
	s.store.Clear()
	s.run.Flags.ClearError()
	s.run.Flags.ClearSuccess()
}
