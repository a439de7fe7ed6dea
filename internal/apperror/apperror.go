// Package apperror classifies failures so the HTTP layer can map them to
// status codes in one place.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindTokenExpired
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindTokenExpired:
		return "token_expired"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TokenExpiredMessage is returned whenever an email or reset token has expired.
const TokenExpiredMessage = "Your token has been expired. Please try again verification process."

// Error carries a Kind and a client-safe message. Err, when set, is the
// underlying cause and is never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind, so sentinels like ErrNotFound
// work with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrTokenExpired    = &Error{Kind: KindTokenExpired}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrUnavailable     = &Error{Kind: KindUnavailable}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
)

func Validation(msg string) error      { return &Error{Kind: KindValidation, Message: msg} }
func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) error       { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error        { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) error        { return &Error{Kind: KindConflict, Message: msg} }
func RateLimited(msg string) error     { return &Error{Kind: KindRateLimited, Message: msg} }

func TokenExpired() error {
	return &Error{Kind: KindTokenExpired, Message: TokenExpiredMessage}
}

// Unavailable reports a failed upstream dependency such as mail delivery.
func Unavailable(msg string, cause error) error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: cause}
}

// Internal wraps an unexpected failure. The message is logged, not returned.
func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// InvalidEnum reports an enum value that reached a default branch.
func InvalidEnum(name string, value any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf("invalid %s value %v reached default case", name, value)}
}

// KindOf returns the Kind of err, or KindInternal if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for a classified error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
