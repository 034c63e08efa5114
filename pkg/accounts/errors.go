package accounts

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for the HTTP layer
type Kind string

const (
	// KindValidation is bad input, rejected before any remote call
	KindValidation Kind = "validation"
	// KindNotFound is a missing user or token
	KindNotFound Kind = "not_found"
	// KindUpstream is a failed identity provider call
	KindUpstream Kind = "upstream"
)

// Error is a domain error. Message is safe to return to clients; Err holds
// the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func validationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

// AsError extracts a domain error from err
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsDomainError reports whether err carries a domain error
func IsDomainError(err error) bool {
	_, ok := AsError(err)
	return ok
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	domainErr, ok := AsError(err)
	return ok && domainErr.Kind == KindNotFound
}
