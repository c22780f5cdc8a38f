package comments

import "errors"

var (
	ErrEmptyText     = errors.New("comment text is empty")
	ErrNotLoaded     = errors.New("comment is not in the current thread")
	ErrNoEventLoaded = errors.New("no event thread loaded")
)
