package gateway

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindTransport covers connection failures, timeouts and unreadable bodies.
	// No status code is available.
	KindTransport Kind = iota + 1
	// KindAuthorization is an HTTP 401. The session has been invalidated.
	KindAuthorization
	// KindStatus is any other non-2xx response.
	KindStatus
	// KindShape is a 2xx response whose body could not be decoded, or a
	// request body that could not be encoded.
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthorization:
		return "authorization"
	case KindStatus:
		return "status"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// Error is the error carried by a failed Result.
type Error struct {
	Kind       Kind
	StatusCode int    // 0 for transport errors
	Message    string // Server supplied message when there is one
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the internal/errors sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindTransport:
		return target == apperrors.ErrTransport
	case KindAuthorization:
		return target == apperrors.ErrUnauthorized
	case KindStatus:
		return target == apperrors.ErrRequestFailed
	case KindShape:
		return target == apperrors.ErrUnexpectedShape
	}
	return false
}

// KindOf returns the kind of a gateway error, or 0 when err is not one.
func KindOf(err error) Kind {
	var gwErr *Error
	if apperrors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}
