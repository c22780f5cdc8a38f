package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirinyoku/tix-client/internal/service/errmsg"
)

// Activity selects which busy flag an operation raises.
type Activity int

const (
	Load Activity = iota
	LoadSingle
	Operate
)

// Status is a point-in-time copy of a service's flags.
type Status struct {
	Loading              bool   `json:"loading"`
	LoadingSingle        bool   `json:"loadingSingle"`
	Operating            bool   `json:"operating"`
	Error                string `json:"error,omitempty"`
	LastOperationSuccess bool   `json:"lastOperationSuccess"`
}

// Flags track the busy, error and success signals of one service. Busy flags
// are counters so overlapping calls of the same activity keep them raised.
type Flags struct {
	mu      sync.RWMutex
	busy    [3]int
	err     string
	success bool
}

func (f *Flags) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Status{
		Loading:              f.busy[Load] > 0,
		LoadingSingle:        f.busy[LoadSingle] > 0,
		Operating:            f.busy[Operate] > 0,
		Error:                f.err,
		LastOperationSuccess: f.success,
	}
}

func (f *Flags) Error() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

func (f *Flags) ClearError() {
	f.mu.Lock()
	f.err = ""
	f.mu.Unlock()
}

func (f *Flags) ClearSuccess() {
	f.mu.Lock()
	f.success = false
	f.mu.Unlock()
}

// SetError stores msg as the current error and drops the success signal.
func (f *Flags) SetError(msg string) {
	f.mu.Lock()
	f.err = msg
	f.success = false
	f.mu.Unlock()
}

func (f *Flags) SetSuccess() {
	f.mu.Lock()
	f.success = true
	f.mu.Unlock()
}

// Begin raises a busy flag and clears the previous error. Operate also resets
// the success signal.
func (f *Flags) Begin(a Activity) func() {
	f.mu.Lock()
	f.busy[a]++
	f.err = ""
	if a == Operate {
		f.success = false
	}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		if f.busy[a] > 0 {
			f.busy[a]--
		}
		f.mu.Unlock()
	}
}

// Runner executes remote operations for one service against its flags.
type Runner struct {
	Flags     *Flags
	Logger    *slog.Logger
	Overrides errmsg.Overrides
}

// Fail classifies err, stores its message and returns the wrapped error.
func (r *Runner) Fail(op string, err error) error {
	msg := errmsg.Message(err, r.Overrides)
	r.Flags.SetError(msg)
	r.Logger.Error("operation failed", "op", op, "error", err)
	return &OpError{Op: op, Message: msg, Err: err}
}

// Exec runs fn under activity a. Operate marks success when fn returns nil.
func (r *Runner) Exec(ctx context.Context, op string, a Activity, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, r, op, a, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do is Exec for operations that produce a value.
func Do[T any](ctx context.Context, r *Runner, op string, a Activity, fn func(ctx context.Context) (T, error)) (T, error) {
	done := r.Flags.Begin(a)
	defer done()

	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, r.Fail(op, err)
	}

	if a == Operate {
		r.Flags.SetSuccess()
	}
	return v, nil
}
