package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTransient marks failures worth retrying on the next scheduled tick.
var ErrTransient = errors.New("transient network error")

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider HTTP %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrTransient) match throttling and server errors.
func (e *APIError) Is(target error) bool {
	return target == ErrTransient && (e.StatusCode == 429 || e.StatusCode >= 500)
}

// IsTransient reports whether err is a timeout, a network failure or a retryable status.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
