package api

import (
	"context"
	"net/http"

	"github.com/kirinyoku/tix-client/internal/domain"
)

type UserRepo struct {
	c *Client
}

func (r *UserRepo) List(ctx context.Context) ([]domain.AdminUser, error) {
	const op = "api.UserRepo.List"

	var dtos []userRecordDTO
	if err := r.c.do(ctx, http.MethodGet, "/users", nil, &dtos, "Failed to load users"); err != nil {
		return nil, wrap(op, err)
	}

	out := make([]domain.AdminUser, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, mapUser(d))
	}

	return out, nil
}

// UpdateRole changes a user's role. The server echoes only the identity
// fields, so the result is not deleted by construction.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role domain.UserRole) (domain.AdminUser, error) {
	const op = "api.UserRepo.UpdateRole"

	var data struct {
		Message string        `json:"message"`
		User    userRecordDTO `json:"user"`
	}
	body := struct {
		Role domain.UserRole `json:"role"`
	}{Role: role}
	path := "/users/" + pathID(id) + "/role"
	if err := r.c.do(ctx, http.MethodPatch, path, body, &data, "Failed to update user role"); err != nil {
		return domain.AdminUser{}, wrap(op, err)
	}

	u := domain.AdminUser{
		ID:    data.User.ID,
		Email: data.User.Email,
		Role:  data.User.Role,
	}
	if u.ID == "" {
		u.ID = data.User.AltID
	}
	if u.ID == "" {
		u.ID = id
	}

	return u, nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, id string) error {
	const op = "api.UserRepo.SoftDelete"

	if err := r.c.do(ctx, http.MethodDelete, "/users/"+pathID(id), nil, nil, "Failed to delete user"); err != nil {
		return wrap(op, err)
	}

	return nil
}

func (r *UserRepo) Restore(ctx context.Context, id string) error {
	const op = "api.UserRepo.Restore"

	path := "/users/" + pathID(id) + "/restore"
	if err := r.c.do(ctx, http.MethodPatch, path, struct{}{}, nil, "Failed to restore user"); err != nil {
		return wrap(op, err)
	}

	return nil
}
