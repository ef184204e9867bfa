package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionClosed is returned when a run session is used after
	// Commit or Rollback.
	ErrSessionClosed = errors.New("run session closed")
)
