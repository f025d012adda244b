package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an economy failure. Controllers map kinds to HTTP status and
// business codes; callers branch on kind with errors.Is against the sentinels below.
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindCapAlreadyReached ErrorKind = "cap_already_reached"
	KindTooEarly          ErrorKind = "too_early"
	KindBusy              ErrorKind = "busy"
	KindInternal          ErrorKind = "internal"
)

// Error is a categorized economy error with optional structured details for the client.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
	Cause   error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrCapAlreadyReached = &Error{Kind: KindCapAlreadyReached}
	ErrTooEarly          = &Error{Kind: KindTooEarly}
	ErrBusy              = &Error{Kind: KindBusy}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so errors.Is(err, ErrBusy) works on any Busy error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether the caller may retry the same request unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindBusy
}

// AsError extracts an *Error from err, wrapping anything else as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal error", Cause: err}
}

func invalidRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func busy(cause error) *Error {
	return &Error{Kind: KindBusy, Message: "another request for this user is in progress, retry shortly", Cause: cause}
}

func internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Cause: cause}
}
