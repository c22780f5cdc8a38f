package users

import "errors"

var ErrInvalidRole = errors.New("unknown user role")
