// Package apperr defines the error kinds surfaced to clients and their
// HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthFailure
	KindDocumentNotFound
	KindFetchFailure
	KindInvalidInput
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindAuthFailure:
		return "auth_failure"
	case KindDocumentNotFound:
		return "document_not_found"
	case KindFetchFailure:
		return "fetch_failure"
	case KindInvalidInput:
		return "invalid_input"
	case KindRateLimited:
		return "rate_limited"
	}
	return "unknown"
}

// Sign-in failure messages shown to the user.
const (
	MsgInvalidEmail  = "Invalid email format"
	MsgUserNotFound  = "No account found with this email"
	MsgWrongPassword = "Incorrect password"
	MsgLoginFailed   = "Login failed. Please try again."
)

// Error is an application error. Message is safe to show to users; Err
// is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AuthReason says why a sign-in failed.
type AuthReason int

const (
	AuthOther AuthReason = iota
	AuthInvalidEmail
	AuthUserNotFound
	AuthWrongPassword
)

// AuthFailure builds a sign-in failure carrying the message for reason.
func AuthFailure(reason AuthReason, err error) *Error {
	msg := MsgLoginFailed
	switch reason {
	case AuthInvalidEmail:
		msg = MsgInvalidEmail
	case AuthUserNotFound:
		msg = MsgUserNotFound
	case AuthWrongPassword:
		msg = MsgWrongPassword
	}
	return &Error{Kind: KindAuthFailure, Op: "signin", Message: msg, Err: err}
}

// NotFound reports a missing document.
func NotFound(op, what string) *Error {
	return &Error{Kind: KindDocumentNotFound, Op: op, Message: what + " not found"}
}

// FetchFailure wraps a data-access error that aborted an assembly.
func FetchFailure(op string, err error) *Error {
	return &Error{Kind: KindFetchFailure, Op: op, Message: "Unable to load usage data. Please try again.", Err: err}
}

// Invalid reports bad client input.
func Invalid(op, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: msg}
}

// RateLimited reports a throttled request.
func RateLimited(op, msg string) *Error {
	return &Error{Kind: KindRateLimited, Op: op, Message: msg}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong. Please try again."
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthFailure:
		return http.StatusUnauthorized
	case KindDocumentNotFound:
		return http.StatusNotFound
	case KindFetchFailure:
		return http.StatusBadGateway
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
