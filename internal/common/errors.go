// Package common defines shared constants and sentinel errors used across
// the chapterhub auth core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrAlreadyMigrated is returned when the conditional migrated flip
	// affected no rows because another call won the race.
	ErrAlreadyMigrated = errors.New("legacy user already migrated")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrUnknownEvent is returned by the metrics store for events outside the
	// closed catalogue.
	ErrUnknownEvent = errors.New("unknown auth event")
)
