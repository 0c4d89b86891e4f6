package services

import "errors"

// Error taxonomy shared by every service. The HTTP layer maps these onto
// response classes; everything else wraps them with context via %w.
var (
	// ErrNotFound covers both "does not exist" and "not owned by the
	// caller". The two are deliberately indistinguishable so a caller
	// can never probe for another user's records.
	ErrNotFound = errors.New("record not found")

	// ErrValidation reports malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict reports a unique-constraint collision.
	ErrConflict = errors.New("conflict")
)
