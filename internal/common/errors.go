// Package common defines shared constants and sentinel errors used across the
// locker controller. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrValidation covers missing or malformed input (bad JSON, non-4-digit code).
	ErrValidation = errors.New("validation error")

	// ErrUnauthenticated covers bad credentials and missing/invalid bearer tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the caller is authenticated but does not own the locker.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned for locker ids outside the registry and unknown rows.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers already occupied / already locked / already unlocked
	// and duplicate usernames.
	ErrConflict = errors.New("conflict")

	// ErrHardwareFault wraps failures reported by servo, sensor, keypad or display lines,
	// including actuation that did not complete within its deadline.
	ErrHardwareFault = errors.New("hardware fault")

	// ErrPersistence wraps durable-store failures.
	ErrPersistence = errors.New("persistence error")

	ErrInternal = errors.New("internal error")
)
