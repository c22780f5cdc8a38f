package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
)

type EventRepo struct {
	c *Client
}

func eventCreatedOn(e domain.Event) time.Time { return e.CreatedOn }

// mapList maps dtos and orders them newest first.
func (r *EventRepo) mapList(dtos []eventDTO) []domain.Event {
	now := r.c.now()
	out := make([]domain.Event, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, mapEvent(d, now))
	}
	sortByTime(out, eventCreatedOn, true)
	return out
}

// List returns all public events, newest first.
func (r *EventRepo) List(ctx context.Context) ([]domain.Event, error) {
	const op = "api.EventRepo.List"

	var dtos []eventDTO
	if err := r.c.do(ctx, http.MethodGet, "/events", nil, &dtos, "Failed to load events"); err != nil {
		return nil, wrap(op, err)
	}

	return r.mapList(dtos), nil
}

// ListAll returns every event including soft-deleted ones. Requires staff rights.
func (r *EventRepo) ListAll(ctx context.Context) ([]domain.Event, error) {
	const op = "api.EventRepo.ListAll"

	var dtos []eventDTO
	if err := r.c.do(ctx, http.MethodGet, "/events/all", nil, &dtos, "Failed to load all events"); err != nil {
		return nil, wrap(op, err)
	}

	return r.mapList(dtos), nil
}

func (r *EventRepo) Get(ctx context.Context, id string) (domain.Event, error) {
	const op = "api.EventRepo.Get"

	var dto eventDTO
	if err := r.c.do(ctx, http.MethodGet, "/events/"+pathID(id), nil, &dto, "Failed to load event"); err != nil {
		return domain.Event{}, wrap(op, err)
	}

	return mapEvent(dto, r.c.now()), nil
}

func (r *EventRepo) Create(ctx context.Context, in domain.BaseEvent) (domain.Event, error) {
	const op = "api.EventRepo.Create"

	var dto eventDTO
	if err := r.c.do(ctx, http.MethodPost, "/events", newEventPayload(in), &dto, "Failed to create event"); err != nil {
		return domain.Event{}, wrap(op, err)
	}

	return mapEvent(dto, r.c.now()), nil
}

func (r *EventRepo) Update(ctx context.Context, id string, in domain.BaseEvent) (domain.Event, error) {
	const op = "api.EventRepo.Update"

	var dto eventDTO
	if err := r.c.do(ctx, http.MethodPut, "/events/"+pathID(id), newEventPayload(in), &dto, "Failed to update event"); err != nil {
		return domain.Event{}, wrap(op, err)
	}

	return mapEvent(dto, r.c.now()), nil
}

// Delete soft-deletes the event on the server.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	const op = "api.EventRepo.Delete"

	if err := r.c.do(ctx, http.MethodDelete, "/events/"+pathID(id), nil, nil, "Failed to delete event"); err != nil {
		return wrap(op, err)
	}

	return nil
}

func (r *EventRepo) Restore(ctx context.Context, id string) error {
	const op = "api.EventRepo.Restore"

	path := "/events/" + pathID(id) + "/restore"
	if err := r.c.do(ctx, http.MethodPatch, path, struct{}{}, nil, "Failed to restore event"); err != nil {
		return wrap(op, err)
	}

	return nil
}

func (r *EventRepo) HardDelete(ctx context.Context, id string) error {
	const op = "api.EventRepo.HardDelete"

	path := "/events/" + pathID(id) + "/hard-delete"
	if err := r.c.do(ctx, http.MethodDelete, path, nil, nil, "Failed to hard-delete event"); err != nil {
		return wrap(op, err)
	}

	return nil
}

// History returns the audit trail of an event, oldest first.
func (r *EventRepo) History(ctx context.Context, id string) ([]domain.EventHistoryEntry, error) {
	const op = "api.EventRepo.History"

	var dtos []eventHistoryDTO
	path := "/events/" + pathID(id) + "/history"
	if err := r.c.do(ctx, http.MethodGet, path, nil, &dtos, "Failed to load event history"); err != nil {
		return nil, wrap(op, err)
	}

	out := make([]domain.EventHistoryEntry, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, mapEventHistory(d))
	}
	sortByTime(out, func(h domain.EventHistoryEntry) time.Time { return h.CreatedAt }, false)

	return out, nil
}

// Rate submits the current user's rating and returns the event with updated aggregates.
func (r *EventRepo) Rate(ctx context.Context, id string, value int) (domain.Event, error) {
	const op = "api.EventRepo.Rate"

	var dto eventDTO
	body := struct {
		Value int `json:"value"`
	}{Value: value}
	path := "/events/" + pathID(id) + "/rating"
	if err := r.c.do(ctx, http.MethodPost, path, body, &dto, "Failed to rate event"); err != nil {
		return domain.Event{}, wrap(op, err)
	}

	return mapEvent(dto, r.c.now()), nil
}
