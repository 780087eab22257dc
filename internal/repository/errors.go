package repository

import "github.com/pkg/errors"

// Common repository errors
var (
	// ErrNotFound is returned when the targeted record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a status-guarded update matched the id
	// but not the expected status: another writer advanced the record first.
	ErrConflict = errors.New("record changed by another writer")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)
