package auth

import "errors"

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidSession     = errors.New("server returned an incomplete session")
)
