package service

// OpError is returned by every service operation that fails. Error yields the
// message meant for the user; the cause stays reachable through Unwrap.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string { return e.Message }

func (e *OpError) Unwrap() error { return e.Err }
