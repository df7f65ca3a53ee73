package application

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid credential.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrUnauthorized is returned when the acting session lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrBlocked is returned when the session's user account is locked.
	ErrBlocked = errors.New("application: user blocked")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource with the same identifier exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when an operation would break a state invariant.
	ErrConflict = errors.New("application: conflict")
	// ErrUnavailable is returned when a required upstream did not answer in time.
	ErrUnavailable = errors.New("application: upstream unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
	order       []string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(v.Issues(), "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Issues returns the recorded messages in the order they were added.
func (v *ValidationError) Issues() []string {
	if v == nil {
		return nil
	}
	issues := make([]string, 0, len(v.FieldErrors))
	for _, field := range v.order {
		if msg, ok := v.FieldErrors[field]; ok {
			issues = append(issues, msg)
		}
	}
	return issues
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
	v.order = append(v.order, field)
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for _, field := range other.order {
		v.add(field, other.FieldErrors[field])
	}
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// DetailedError pairs a sentinel error with a message that can be shown to clients.
type DetailedError struct {
	Kind    error
	Message string
}

func (e *DetailedError) Error() string {
	if e.Kind == nil {
		return e.Message
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *DetailedError) Unwrap() error {
	return e.Kind
}

func failure(kind error, message string) error {
	return &DetailedError{Kind: kind, Message: message}
}

// wrapNotFound attaches a client message to not found errors.
func wrapNotFound(err error, message string) error {
	if err == nil || !errors.Is(err, ErrNotFound) {
		return err
	}
	var detailed *DetailedError
	if errors.As(err, &detailed) {
		return err
	}
	return failure(ErrNotFound, message)
}
