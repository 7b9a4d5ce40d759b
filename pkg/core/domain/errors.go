package domain

import (
	"errors"
	"time"
)

// ErrorKind is the closed set of failures the engine reports to its callers.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidURL
	KindInvalidCode
	KindInvalidInput
	KindConflict
	KindAllocationExhausted
	KindNotFound
	KindForbidden
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindInvalidCode:
		return "invalid_code"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindAllocationExhausted:
		return "allocation_exhausted"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is a typed engine failure. Two Errors match under errors.Is when
// their kinds are equal.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error

	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidURL          = &Error{Kind: KindInvalidURL, Message: "invalid url"}
	ErrInvalidCode         = &Error{Kind: KindInvalidCode, Message: "invalid short code"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "short code already exists"}
	ErrAllocationExhausted = &Error{Kind: KindAllocationExhausted, Message: "could not allocate a unique short code"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "link not found"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "not allowed to modify this link"}
	ErrRateLimited         = &Error{Kind: KindRateLimited, Message: "rate limit exceeded"}
)

// NewError builds an Error of the given kind with a specific message.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// RateLimited builds a KindRateLimited error carrying the time until the
// caller may retry.
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: ErrRateLimited.Message, RetryAfter: retryAfter}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
