package contracts

import "fmt"

// ErrorKind is the closed set of error categories every component returns.
// The Router maps a Kind to an HTTP status code; no other translation is
// performed outside that boundary.
type ErrorKind string

const (
	ErrValidation         ErrorKind = "ValidationError"
	ErrInvalidCredentials ErrorKind = "InvalidCredentials"
	ErrLocked             ErrorKind = "Locked"
	ErrInactive           ErrorKind = "Inactive"
	ErrSessionNotFound    ErrorKind = "SessionNotFound"
	ErrSessionExpired     ErrorKind = "SessionExpired"
	ErrSessionRevoked     ErrorKind = "SessionRevoked"
	ErrNotFound           ErrorKind = "NotFound"
	ErrNoActiveConnection ErrorKind = "NoActiveConnection"
	ErrDuplicate          ErrorKind = "Duplicate"
	ErrUnreachable        ErrorKind = "Unreachable"
	ErrBlocked            ErrorKind = "Blocked"
	ErrDriverError        ErrorKind = "DriverError"
	ErrSynthesisFailed    ErrorKind = "SynthesisFailed"
	ErrUpstreamUnavail    ErrorKind = "UpstreamUnavailable"
	ErrTimeout            ErrorKind = "Timeout"
	ErrInternal           ErrorKind = "Internal"
)

// Error is the common error shape returned across component boundaries.
// It carries a Kind for programmatic dispatch and a user-safe Message;
// Detail is for logs only and must never be surfaced to a caller.
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// NewError builds an Error, defaulting Message to a generic phrase per Kind
// so callers never have to hand-craft a user-safe string for common cases.
func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Message: defaultMessage(kind), Detail: detail}
}

func NewErrorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return NewError(kind, fmt.Sprintf(format, args...))
}

func defaultMessage(kind ErrorKind) string {
	switch kind {
	case ErrValidation:
		return "the request was invalid"
	case ErrInvalidCredentials:
		return "invalid credentials"
	case ErrLocked:
		return "account temporarily locked"
	case ErrInactive:
		return "account is inactive"
	case ErrSessionNotFound:
		return "session not found"
	case ErrSessionExpired:
		return "session expired"
	case ErrSessionRevoked:
		return "session revoked"
	case ErrNotFound:
		return "not found"
	case ErrNoActiveConnection:
		return "no active database connection for this request"
	case ErrDuplicate:
		return "already exists"
	case ErrUnreachable:
		return "database unreachable"
	case ErrBlocked:
		return "query blocked by safety policy"
	case ErrDriverError:
		return "the query could not be executed"
	case ErrSynthesisFailed:
		return "could not generate a query for that request"
	case ErrUpstreamUnavail:
		return "a dependent service is unavailable"
	case ErrTimeout:
		return "the request timed out"
	default:
		return "an internal error occurred"
	}
}

// AsError extracts a *Error from any error, wrapping unknown errors as Internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return NewError(ErrInternal, err.Error())
}
