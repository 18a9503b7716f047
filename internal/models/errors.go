package models

import "errors"

// Client error taxonomy. Callers match these with errors.Is.
var (
	// ErrValidation indicates that input was rejected locally before any network call
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated indicates that an operation requires a session but none exists
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrSessionExpired indicates that the server rejected the session token (401/403)
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound indicates that a note id is absent from the local collection
	ErrNotFound = errors.New("note not found")
)
