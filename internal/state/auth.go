package state

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/storage"
)

// AuthStore holds the signed-in user and persists it. It satisfies the API
// client's session interface.
type AuthStore struct {
	mu   sync.RWMutex
	user *domain.AuthUser

	storage storage.Local
	logger  *slog.Logger
	now     func() time.Time
}

func NewAuthStore(st storage.Local, opts Options) *AuthStore {
	opts = opts.withDefaults()
	return &AuthStore{
		storage: st,
		logger:  opts.Logger.With("store", "auth"),
		now:     opts.Now,
	}
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Tokens that are not JWTs are treated as opaque and never expire here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now)
}

// Load restores the persisted session. Invalid or expired records are
// discarded and their key removed; this never fails on bad data.
func (s *AuthStore) Load(ctx context.Context) error {
	const op = "state.AuthStore.Load"

	raw, ok, err := s.storage.Get(ctx, storage.KeyUser)
	if err != nil {
		s.logger.Error("load session", "op", op, "error", err)
		return err
	}
	if !ok || raw == "" {
		s.set(nil)
		return nil
	}

	var u domain.AuthUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil || !u.Valid() || tokenExpired(u.AccessToken, s.now()) {
		s.logger.Warn("invalid session in storage, clearing", "op", op)
		if err := s.storage.Remove(ctx, storage.KeyUser); err != nil {
			s.logger.Error("clear session", "op", op, "error", err)
		}
		s.set(nil)
		return nil
	}

	s.set(&u)
	s.logger.Debug("session restored", "email", u.Email)
	return nil
}

func (s *AuthStore) set(u *domain.AuthUser) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// SetUser stores u, or clears the session when u is nil.
func (s *AuthStore) SetUser(u *domain.AuthUser) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if u == nil {
		s.set(nil)
		if err := s.storage.Remove(ctx, storage.KeyUser); err != nil {
			s.logger.Error("remove session", "error", err)
		}
		return
	}

	cp := *u
	s.set(&cp)

	b, err := json.Marshal(cp)
	if err != nil {
		s.logger.Error("encode session", "error", err)
		return
	}
	if err := s.storage.Set(ctx, storage.KeyUser, string(b)); err != nil {
		s.logger.Error("save session", "error", err)
	}
}

func (s *AuthStore) Clear() { s.SetUser(nil) }

func (s *AuthStore) User() (domain.AuthUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.AuthUser{}, false
	}
	return *s.user, true
}

func (s *AuthStore) IsLoggedIn() bool {
	_, ok := s.User()
	return ok
}

func (s *AuthStore) Token() string {
	u, _ := s.User()
	return u.AccessToken
}

func (s *AuthStore) UserID() string {
	u, _ := s.User()
	return u.ID
}

func (s *AuthStore) Email() string {
	u, _ := s.User()
	return u.Email
}

// Role is empty when signed out.
func (s *AuthStore) Role() domain.UserRole {
	u, _ := s.User()
	return u.Role
}

func (s *AuthStore) HasRole(r domain.UserRole) bool { return s.Role() == r }
func (s *AuthStore) IsAdmin() bool                  { return s.Role() == domain.RoleAdmin }
func (s *AuthStore) IsPowerUser() bool              { return s.Role() == domain.RolePowerUser }
func (s *AuthStore) IsStaff() bool                  { return s.Role().IsStaff() }
