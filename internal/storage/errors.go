package storage

import "errors"

// Stores are append-only: records are inserted once and never updated.
var (
	// ErrNotFound is returned when no record has the requested key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert reuses an existing key.
	// A rerun over an already processed contract surfaces as this error.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput is returned for records that violate a column constraint.
	ErrInvalidInput = errors.New("invalid input")
)
