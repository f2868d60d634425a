package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an authentication failure. Handlers map kinds to HTTP
// status codes; everything else about the error stays server-side.
type Kind int

const (
	// KindMalformed marks input that is structurally wrong: a token string
	// that does not decode, or a token presented in the wrong slot. Safe to
	// describe precisely in responses, it reveals no server state.
	KindMalformed Kind = iota + 1
	// KindUnauthorized covers session-not-found, field mismatch and expiry.
	// Always reported with the same generic message so a caller cannot
	// tell which check failed.
	KindUnauthorized
	// KindInfrastructure is a store or transport failure. Detail is logged,
	// the client sees a generic server error.
	KindInfrastructure
)

// AuthError is the structured error returned by the token subsystem.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Malformed reports structurally invalid input.
func Malformed(message string) *AuthError {
	return &AuthError{Kind: KindMalformed, Message: message}
}

// Malformedf reports structurally invalid input with formatting.
func Malformedf(format string, args ...any) *AuthError {
	return &AuthError{Kind: KindMalformed, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports an authentication failure. The message is fixed on
// purpose: not-found, mismatch and expiry must be indistinguishable.
func Unauthorized() *AuthError {
	return &AuthError{Kind: KindUnauthorized, Message: "invalid token"}
}

// Infrastructure wraps a store or transport failure.
func Infrastructure(message string, err error) *AuthError {
	return &AuthError{Kind: KindInfrastructure, Message: message, Err: err}
}

// KindOf returns the Kind of err, or 0 if err is not an AuthError.
func KindOf(err error) Kind {
	var ae *AuthError
	if stderrors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
