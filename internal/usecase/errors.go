package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorLimitReached    ErrorCode = "LIMIT_REACHED"
	ErrorUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrorUnavailable     ErrorCode = "UNAVAILABLE"
	ErrorRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorUpstream        ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

// Message is the short, non-technical text shown to the user for code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorInvalidInput:
		return "That request could not be processed."
	case ErrorLimitReached:
		return "This conversation has reached its limit. Please start a new one."
	case ErrorUnauthenticated:
		return "Please sign in again."
	case ErrorUnavailable:
		return "Clamp is not available yet."
	case ErrorRateLimited:
		return "Clamp is busy right now. Please try again shortly."
	default:
		return "Something went wrong. Please try again."
	}
}

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
