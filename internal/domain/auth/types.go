// Package auth provides request authentication, IP filtering, and the
// status-coded error taxonomy for the HTTP middleware boundary.
package auth

import (
	"errors"
	"net/http"
)

// Error is a status-coded failure from the authentication pipeline.
// The HTTP middleware converts it to a structured JSON error body with
// the matching status code; it never reaches route handlers.
type Error struct {
	// Status is the HTTP status code for this failure.
	Status int

	// Message is the client-visible error description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// NewAuthenticationError returns a 401 error for bad or missing credentials.
func NewAuthenticationError(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// NewAuthorizationError returns a 403 error for a caller outside the IP whitelist.
func NewAuthorizationError(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// NewRateLimitError returns a 429 error for a caller over quota.
func NewRateLimitError(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: message}
}

// AsError unwraps err into an *Error if it is one.
func AsError(err error) (*Error, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
