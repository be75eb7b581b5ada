// Package errs defines the error kinds the CLI maps to exit codes.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks bad CLI usage (unknown flag, malformed JID, ...).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a lookup miss in the local mirror.
	ErrNotFound = errors.New("not found")
	// ErrLockHeld marks store-lock contention with another wacli process.
	ErrLockHeld = errors.New("store is locked")
	// ErrNotAuthenticated marks a connected operation without a paired session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// InvalidArgumentf wraps a formatted message as an invalid-argument error.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFoundf wraps a formatted message as a not-found error.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ExitCode maps an error to the process exit code: 0 for nil, 2 for invalid
// usage, 3 for lock contention, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidArgument):
		return 2
	case errors.Is(err, ErrLockHeld):
		return 3
	default:
		return 1
	}
}
