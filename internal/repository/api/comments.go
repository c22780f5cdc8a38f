package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
)

type CommentRepo struct {
	c *Client
}

type contentBody struct {
	Content string `json:"content"`
}

func (r *CommentRepo) one(dto commentDTO) domain.EventComment {
	return mapComment(dto, r.c.currentUserID(), r.c.now())
}

// ListForEvent returns the comments of an event in conversation order.
func (r *CommentRepo) ListForEvent(ctx context.Context, eventID string) ([]domain.EventComment, error) {
	const op = "api.CommentRepo.ListForEvent"

	var dtos []commentDTO
	path := "/events/" + pathID(eventID) + "/comments"
	if err := r.c.do(ctx, http.MethodGet, path, nil, &dtos, "Failed to load comments"); err != nil {
		return nil, wrap(op, err)
	}

	uid, now := r.c.currentUserID(), r.c.now()
	out := make([]domain.EventComment, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, mapComment(d, uid, now))
	}
	sortByTime(out, func(c domain.EventComment) time.Time { return c.CreatedAt }, false)

	return out, nil
}

func (r *CommentRepo) Add(ctx context.Context, eventID, text string) (domain.EventComment, error) {
	const op = "api.CommentRepo.Add"

	var dto commentDTO
	path := "/events/" + pathID(eventID) + "/comments"
	if err := r.c.do(ctx, http.MethodPost, path, contentBody{Content: text}, &dto, "Failed to add comment"); err != nil {
		return domain.EventComment{}, wrap(op, err)
	}

	return r.one(dto), nil
}

func (r *CommentRepo) Update(ctx context.Context, id, text string) (domain.EventComment, error) {
	const op = "api.CommentRepo.Update"

	var dto commentDTO
	if err := r.c.do(ctx, http.MethodPut, "/comments/"+pathID(id), contentBody{Content: text}, &dto, "Failed to update comment"); err != nil {
		return domain.EventComment{}, wrap(op, err)
	}

	return r.one(dto), nil
}

func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	const op = "api.CommentRepo.Delete"

	if err := r.c.do(ctx, http.MethodDelete, "/comments/"+pathID(id), nil, nil, "Failed to delete comment"); err != nil {
		return wrap(op, err)
	}

	return nil
}

func (r *CommentRepo) ToggleLike(ctx context.Context, id string) (domain.EventComment, error) {
	const op = "api.CommentRepo.ToggleLike"

	var dto commentDTO
	path := "/comments/" + pathID(id) + "/like-toggle"
	if err := r.c.do(ctx, http.MethodPost, path, struct{}{}, &dto, "Failed to toggle like"); err != nil {
		return domain.EventComment{}, wrap(op, err)
	}

	return r.one(dto), nil
}

func (r *CommentRepo) Restore(ctx context.Context, id string) (domain.EventComment, error) {
	const op = "api.CommentRepo.Restore"

	var dto commentDTO
	path := "/comments/" + pathID(id) + "/restore"
	if err := r.c.do(ctx, http.MethodPatch, path, struct{}{}, &dto, "Failed to restore comment"); err != nil {
		return domain.EventComment{}, wrap(op, err)
	}

	return r.one(dto), nil
}

// History returns the raw audit records of a comment.
func (r *CommentRepo) History(ctx context.Context, id string) ([]domain.CommentHistoryEntry, error) {
	const op = "api.CommentRepo.History"

	var raw []json.RawMessage
	path := "/comments/" + pathID(id) + "/history"
	if err := r.c.do(ctx, http.MethodGet, path, nil, &raw, "Failed to load comment history"); err != nil {
		return nil, wrap(op, err)
	}

	out := make([]domain.CommentHistoryEntry, 0, len(raw))
	for _, m := range raw {
		out = append(out, domain.CommentHistoryEntry(m))
	}

	return out, nil
}
