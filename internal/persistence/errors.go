package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a write breaks a check or foreign key constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrOpenAuditExists is returned when a user already has an audit without an end time.
	ErrOpenAuditExists = errors.New("persistence: open audit already exists")
)
