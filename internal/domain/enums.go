// Package domain defines the core domain models for the sauna backend.
package domain

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FragmentType represents the kind of a streamed fragment.
type FragmentType string

const (
	FragmentSessionInit FragmentType = "session_init"
	FragmentToken       FragmentType = "token"
	FragmentComplete    FragmentType = "complete"
	FragmentError       FragmentType = "error"
)

// IsTerminal reports whether the fragment type ends a stream.
func (t FragmentType) IsTerminal() bool {
	return t == FragmentComplete || t == FragmentError
}

// ErrorKind is the stable, machine-checkable class of a failure.
type ErrorKind string

const (
	KindUnavailable  ErrorKind = "unavailable"
	KindNotFound     ErrorKind = "not_found"
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindInternal     ErrorKind = "internal"
)

// DefaultGender is used when neither the request nor the profile carries one.
const DefaultGender = "Prefer not to say"
