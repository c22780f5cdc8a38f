package repository

import "errors"

// Failure kinds of a remote call. Gateway errors wrap exactly one of these.
var (
	ErrNetwork      = errors.New("network unreachable")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("service unavailable")
	ErrServer       = errors.New("server error")
	ErrUnexpected   = errors.New("unexpected response")
	ErrEnvelope     = errors.New("request rejected")
)
