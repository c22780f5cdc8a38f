package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kirinyoku/tix-client/internal/repository"
)

// Error is a failed remote call. Status is 0 when no response was received.
type Error struct {
	Status  int
	Code    string
	Message string // server-supplied, or the operation default for envelope failures
	Method  string
	URL     string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, msg)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, msg)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// AsError extracts the *Error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return repository.ErrBadRequest
	case status == http.StatusUnauthorized:
		return repository.ErrUnauthorized
	case status == http.StatusForbidden:
		return repository.ErrForbidden
	case status == http.StatusNotFound:
		return repository.ErrNotFound
	case status == http.StatusConflict:
		return repository.ErrConflict
	case status == http.StatusUnprocessableEntity:
		return repository.ErrValidation
	case status == http.StatusServiceUnavailable:
		return repository.ErrUnavailable
	case status >= 500:
		return repository.ErrServer
	default:
		return repository.ErrUnexpected
	}
}

// errorCode accepts both "NOT_FOUND" and 404 style codes.
type errorCode string

func (c *errorCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = errorCode(s)
		return nil
	}
	*c = errorCode(b)
	return nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
