package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamConsumed is returned when a stream is run more than once.
	ErrStreamConsumed = errors.New("stream already consumed")
	// ErrStreamIdle is the cancellation cause used when the engine stops producing tokens.
	ErrStreamIdle = errors.New("stream idle timeout")
	// ErrObjectNotFound is returned by object stores for missing keys.
	ErrObjectNotFound = errors.New("object not found")
)

// Error is a classified failure returned by the service layer.
// Message is safe to show to clients; Err is the underlying cause and is only logged.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable reports that a dependency is not ready yet.
func Unavailable(msg string) *Error {
	return &Error{Kind: KindUnavailable, Message: msg}
}

// NotFound reports a missing resource.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Invalid reports a request that failed validation.
func Invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unauthorized reports a missing or rejected credential.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Internal wraps a processing failure behind a generic message.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not classified.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

const msgInternal = "Internal server error"

// ErrorBody renders err for clients. Unclassified errors get a generic message.
func ErrorBody(err error, sessionID string) ErrorResponse {
	body := ErrorResponse{Code: KindInternal, Error: msgInternal, SessionID: sessionID}
	var de *Error
	if errors.As(err, &de) {
		body.Code, body.Error = de.Kind, de.Message
	}
	return body
}
