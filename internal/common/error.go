// Package common defines shared constants and sentinel errors used across
// the storage, consent and tracking layers of Polaris. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// ErrStorageFailure marks schema and I/O failures of the persistent store.
	// It is never swallowed: callers must react to durability problems.
	ErrStorageFailure = errors.New("storage failure")

	// Consent registry errors.
	ErrConsentNotFound = errors.New("consent not found")
	ErrConsentExists   = errors.New("consent for this type already exists")
	ErrInvalidConsent  = errors.New("invalid consent")

	// Tracker errors.
	ErrPermissionDenied     = errors.New("permission denied")
	ErrTrackingStartFailure = errors.New("tracking start failure")
)
