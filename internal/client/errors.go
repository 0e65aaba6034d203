package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by queries and commands issued while the
	// connection state is anything but connected.
	ErrNotConnected = errors.New("not connected")
	// ErrUnsupported marks operations the transport offers no request for.
	ErrUnsupported = errors.New("operation not supported by the transport")
)

// ValidationError reports a malformed argument, such as a direct chat id
// given to a group operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
