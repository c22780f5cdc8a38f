package events

import "errors"

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrMissingID     = errors.New("event id is required")
)
