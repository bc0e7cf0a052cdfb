package errors

import (
	"errors"
	"fmt"
)

// Common error types for the timetrack client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidSession   = errors.New("invalid session")
	ErrSessionExpired   = errors.New("session expired")

	// Gateway errors
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTransport       = errors.New("transport error")
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrRequestFailed   = errors.New("request failed")

	// Backend errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")

	// Capture errors
	ErrCaptureFailed = errors.New("capture failed")

	// Configuration errors
	ErrMissingConfig = errors.New("missing required configuration")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
