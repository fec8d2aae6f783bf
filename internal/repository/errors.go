// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrPostNotFound is returned when the target post does not exist or is deleted.
	ErrPostNotFound = errors.New("post not found")
	// ErrUserNotFound is returned when the target user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrConflict marks a transient contention failure the caller may retry.
	ErrConflict = errors.New("store conflict")
)

// PostgreSQL SQLSTATE codes treated as transient contention.
const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgLockNotAvailable     = "55P03"
)

// IsConflict reports whether err is a retryable store conflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDeadlockDetected, pgSerializationFailure, pgLockNotAvailable:
			return true
		}
	}
	return false
}
