package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/service"
	"github.com/kirinyoku/tix-client/internal/service/errmsg"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/kirinyoku/tix-client/internal/ui"
)

// Gateway is the remote authentication API.
type Gateway interface {
	Register(ctx context.Context, email, password string, role domain.UserRole) (domain.AuthUser, error)
	Login(ctx context.Context, email, password string) (domain.AuthUser, error)
	Logout(ctx context.Context) error
}

// Navigator moves the view layer between pages.
type Navigator interface {
	CurrentURL() string
	Navigate(path string)
	NavigateToLogin(returnURL string)
}

type Service struct {
	gw      Gateway
	session *state.AuthStore
	nav     Navigator
	run     service.Runner

	mu        sync.RWMutex
	onSignOut []func(userID string)
}

func New(gw Gateway, session *state.AuthStore, nav Navigator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		gw:      gw,
		session: session,
		nav:     nav,
		run: service.Runner{
			Flags:  &service.Flags{},
			Logger: logger.With("service", "auth"),
			Overrides: errmsg.Auth.With(map[error]string{
				ErrMissingCredentials: "Email and password are required.",
				ErrInvalidSession:     "Login failed. Please try again.",
			}),
		},
	}
}

// OnSignOut registers fn to run after the local session is cleared, with
// the id of the user that signed out.
func (s *Service) OnSignOut(fn func(userID string)) {
	s.mu.Lock()
	s.onSignOut = append(s.onSignOut, fn)
	s.mu.Unlock()
}

func (s *Service) Session() *state.AuthStore { return s.session }

func (s *Service) Status() service.Status { return s.run.Flags.Status() }
func (s *Service) ClearError()            { s.run.Flags.ClearError() }
func (s *Service) ClearSuccess()          { s.run.Flags.ClearSuccess() }

func (s *Service) Token() string                  { return s.session.Token() }
func (s *Service) UserID() string                 { return s.session.UserID() }
func (s *Service) Role() domain.UserRole          { return s.session.Role() }
func (s *Service) HasRole(r domain.UserRole) bool { return s.session.HasRole(r) }
func (s *Service) IsLoggedIn() bool               { return s.session.IsLoggedIn() }
func (s *Service) User() (domain.AuthUser, bool)  { return s.session.User() }

func credentials(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	return email, nil
}

// Register creates an account and signs it in. An empty role means user.
//
// Parameters:
//   - ctx: request-scoped context.
//   - email, password: the new account's credentials.
//   - role: requested role.
//
// Returns:
//   - domain.AuthUser: the signed-in user.
//   - error: auth.ErrMissingCredentials, or the classified remote failure.
func (s *Service) Register(ctx context.Context, email, password string, role domain.UserRole) (domain.AuthUser, error) {
	const op = "service.auth.Register"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.AuthUser, error) {
		email, err := credentials(email, password)
		if err != nil {
			return domain.AuthUser{}, err
		}
		if role == "" {
			role = domain.RoleUser
		}
		u, err := s.gw.Register(ctx, email, password, role)
		if err != nil {
			return domain.AuthUser{}, err
		}
		return s.signIn(u)
	})
}

func (s *Service) Login(ctx context.Context, email, password string) (domain.AuthUser, error) {
	const op = "service.auth.Login"

	return service.Do(ctx, &s.run, op, service.Operate, func(ctx context.Context) (domain.AuthUser, error) {
		email, err := credentials(email, password)
		if err != nil {
			return domain.AuthUser{}, err
		}
		u, err := s.gw.Login(ctx, email, password)
		if err != nil {
			return domain.AuthUser{}, err
		}
		return s.signIn(u)
	})
}

func (s *Service) signIn(u domain.AuthUser) (domain.AuthUser, error) {
	if !u.Valid() {
		return domain.AuthUser{}, ErrInvalidSession
	}
	s.session.SetUser(&u)
	s.run.Logger.Info("signed in", "email", u.Email, "role", u.Role)
	return u, nil
}

// Logout ends the session on the server. The local session is cleared and,
// when navigate is set, the user is sent to the login page even if the
// server call fails; that failure is logged and not returned.
func (s *Service) Logout(ctx context.Context, navigate bool) {
	const op = "service.auth.Logout"

	done := s.run.Flags.Begin(service.Load)
	defer done()

	email := s.session.Email()
	if err := s.gw.Logout(ctx); err != nil {
		s.run.Logger.Warn("server logout failed, clearing local session anyway", "op", op, "error", err)
	} else {
		s.run.Flags.SetSuccess()
	}

	s.clearLocal()
	s.run.Logger.Info("signed out", "email", email)

	if navigate && s.nav != nil {
		s.nav.Navigate(ui.LoginPath)
	}
}

// QuickLogout clears the session without contacting the server and
// redirects to login, remembering returnURL.
func (s *Service) QuickLogout(returnURL string) {
	s.clearLocal()
	if s.nav != nil {
		s.nav.NavigateToLogin(returnURL)
	}
}

// HandleUnauthorized reacts to a 401 from a protected endpoint. Nothing
// happens when the user is already on the login page.
func (s *Service) HandleUnauthorized(_ context.Context) {
	if s.nav == nil {
		s.clearLocal()
		return
	}
	current := s.nav.CurrentURL()
	if ui.IsLoginURL(current) {
		return
	}
	s.run.Logger.Warn("session rejected by server, signing out", "url", current)
	s.QuickLogout(current)
}

func (s *Service) clearLocal() {
	userID := s.session.UserID()
	s.session.Clear()

	s.mu.RLock()
	hooks := append([]func(string){}, s.onSignOut...)
	s.mu.RUnlock()

	for _, fn := range hooks {
		fn(userID)
	}
}
