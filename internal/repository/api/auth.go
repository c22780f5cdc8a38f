package api

import (
	"context"
	"net/http"

	"github.com/kirinyoku/tix-client/internal/domain"
)

type AuthRepo struct {
	c *Client
}

type credentials struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role,omitempty"`
}

func (r *AuthRepo) Register(ctx context.Context, email, password string, role domain.UserRole) (domain.AuthUser, error) {
	const op = "api.AuthRepo.Register"

	if role == "" {
		role = domain.RoleUser
	}

	var data authDataDTO
	body := credentials{Email: email, Password: password, Role: role}
	if err := r.c.do(ctx, http.MethodPost, "/auth/register", body, &data, "Registration failed"); err != nil {
		return domain.AuthUser{}, wrap(op, err)
	}

	return mapAuth(data), nil
}

func (r *AuthRepo) Login(ctx context.Context, email, password string) (domain.AuthUser, error) {
	const op = "api.AuthRepo.Login"

	var data authDataDTO
	if err := r.c.do(ctx, http.MethodPost, "/auth/login", credentials{Email: email, Password: password}, &data, "Login failed"); err != nil {
		return domain.AuthUser{}, wrap(op, err)
	}

	return mapAuth(data), nil
}

// Logout invalidates the session server-side.
func (r *AuthRepo) Logout(ctx context.Context) error {
	const op = "api.AuthRepo.Logout"

	if err := r.c.do(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil, "Logout failed"); err != nil {
		return wrap(op, err)
	}

	return nil
}
