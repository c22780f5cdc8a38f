// Package errmsg turns failed operations into messages fit for the end user.
package errmsg

import (
	"errors"
	"net/http"

	"github.com/kirinyoku/tix-client/internal/repository"
	"github.com/kirinyoku/tix-client/internal/repository/api"
)

const (
	Unexpected = "An unexpected error occurred."
	Network    = "Cannot connect to server. Check your internet connection."
)

var base = map[int]string{
	http.StatusBadRequest:          "Invalid request. Please check your input.",
	http.StatusUnauthorized:        "Unauthorized. Please login.",
	http.StatusForbidden:           "Access forbidden.",
	http.StatusNotFound:            "Resource not found.",
	http.StatusConflict:            "Conflict. Operation cannot be completed.",
	http.StatusUnprocessableEntity: "Validation failed. Please check your input.",
	http.StatusInternalServerError: "Server error. Please try again later.",
	http.StatusServiceUnavailable:  "Service unavailable. Please try again later.",
}

// Overrides customises the base table for one domain. Sentinels maps local
// errors, matched with errors.Is, to their message.
type Overrides struct {
	Status    map[int]string
	Sentinels map[error]string
}

var (
	Events = Overrides{Status: map[int]string{
		http.StatusNotFound: "Event not found.",
		http.StatusConflict: "Conflict. Event may already exist.",
	}}
	Orders = Overrides{Status: map[int]string{
		http.StatusNotFound: "Order not found.",
		http.StatusConflict: "Conflict. Order may already exist or tickets unavailable.",
	}}
	Users = Overrides{Status: map[int]string{
		http.StatusForbidden: "Access forbidden. Admin rights required.",
		http.StatusNotFound:  "User not found.",
		http.StatusConflict:  "Conflict. Operation cannot be completed.",
	}}
	Comments = Overrides{Status: map[int]string{
		http.StatusNotFound: "Comment not found.",
		http.StatusConflict: "Conflict. Comment may already exist.",
	}}
	Auth = Overrides{Status: map[int]string{
		http.StatusUnauthorized: "Invalid email or password.",
		http.StatusConflict:     "User with this email already exists.",
	}}
)

// With returns a copy of o that also maps the given local errors.
func (o Overrides) With(sentinels map[error]string) Overrides {
	merged := make(map[error]string, len(o.Sentinels)+len(sentinels))
	for k, v := range o.Sentinels {
		merged[k] = v
	}
	for k, v := range sentinels {
		merged[k] = v
	}
	return Overrides{Status: o.Status, Sentinels: merged}
}

// ForStatus returns the message for an HTTP status without a server message.
// Status 0 means no response was received.
func (o Overrides) ForStatus(status int) string {
	if status == 0 {
		return Network
	}
	if m, ok := o.Status[status]; ok {
		return m
	}
	if m, ok := base[status]; ok {
		return m
	}
	if status >= 500 {
		return base[http.StatusInternalServerError]
	}
	return Unexpected
}

// Message picks the text shown for err. A server-supplied message wins over
// the status table.
func Message(err error, o Overrides) string {
	if err == nil {
		return ""
	}

	for sentinel, msg := range o.Sentinels {
		if errors.Is(err, sentinel) {
			return msg
		}
	}

	if ae, ok := api.AsError(err); ok {
		if ae.Message != "" {
			return ae.Message
		}
		if errors.Is(ae.Kind, repository.ErrNetwork) {
			return Network
		}
		return o.ForStatus(ae.Status)
	}

	if errors.Is(err, repository.ErrNetwork) {
		return Network
	}
	return Unexpected
}
