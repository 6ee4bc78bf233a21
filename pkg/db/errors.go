package db

import (
	"errors"
	"strings"
)

// ErrConcurrentModification signals a versioned update matched zero rows
// because another writer committed first. Callers map it to a retryable
// conflict response.
var ErrConcurrentModification = errors.New("row was modified concurrently")

// IsConcurrentModification reports whether the error chain contains an
// optimistic-concurrency conflict.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	// sqlite phrases the same failure differently, which the in-memory tests hit
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
