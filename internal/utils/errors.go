package utils

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds surfaced by the health engine.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrCancelled           = errors.New("cancelled")
)

// AppError wraps an operation, an error kind, a human-facing message and the underlying error.
type AppError struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	kind := "error"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}
	switch {
	case e.Err == nil && e.Msg == "":
		return fmt.Sprintf("%s: %s", e.Op, kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s: %s", e.Op, kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %s: %v", e.Op, kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, kind, e.Msg, e.Err)
	}
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches the error kind so errors.Is(err, ErrCancelled) works through wrapping.
func (e *AppError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// NewAppError constructs an AppError.
func NewAppError(op string, kind error, msg string, err error) error {
	return &AppError{Op: op, Kind: kind, Msg: msg, Err: err}
}

// InvalidArgument reports a request rejected before any query ran.
func InvalidArgument(op, msg string) error {
	return &AppError{Op: op, Kind: ErrInvalidArgument, Msg: msg}
}

// Upstream classifies a log store failure, including a store-side timeout.
// Only the caller's own context decides Cancelled; see Cancelled.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != nil {
		return err
	}
	return &AppError{Op: op, Kind: ErrUpstreamUnavailable, Err: err}
}

// Cancelled wraps the context error of an aborted evaluation.
func Cancelled(op string, ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	return &AppError{Op: op, Kind: ErrCancelled, Err: err}
}
