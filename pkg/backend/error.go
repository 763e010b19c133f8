package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// InvocationError wraps provider errors with status metadata.
type InvocationError struct {
	Backend   string
	Status    int
	Temporary bool
	Err       error
}

func (e *InvocationError) Error() string {
	if e == nil {
		return "invocation error"
	}
	if e.Err != nil {
		if e.Backend != "" {
			return fmt.Sprintf("%s: %v", e.Backend, e.Err)
		}
		return e.Err.Error()
	}
	return fmt.Sprintf("invocation error (backend=%s status=%d)", e.Backend, e.Status)
}

func (e *InvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func asInvocationError(err error, target **InvocationError) bool {
	return errors.As(err, target)
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		if invErr.Temporary {
			return true
		}
		if invErr.Status == 429 || (invErr.Status >= 500 && invErr.Status <= 599) {
			return true
		}
	}
	return false
}
