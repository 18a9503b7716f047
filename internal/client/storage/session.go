package storage

import (
	"context"
)

// SessionStorage defines interface for persisting the session credential on client.
// Exactly one session is stored at a time, under a single well-known key.
type SessionStorage interface {
	// SaveSession stores the session, replacing any previous one
	SaveSession(ctx context.Context, session *SessionData) error

	// GetSession retrieves the stored session
	// Returns ErrSessionNotFound if no session exists
	GetSession(ctx context.Context) (*SessionData, error)

	// DeleteSession removes the stored session (logout, session expiry)
	// Returns ErrSessionNotFound if no session exists
	DeleteSession(ctx context.Context) error
}

// SessionData represents the persisted session
type SessionData struct {
	Token     string `json:"token"`      // bearer token as issued by the server
	Username  string `json:"username"`   // username returned by /login
	ExpiresAt int64  `json:"expires_at"` // unix seconds from the token exp claim, 0 if unknown
	SavedAt   int64  `json:"saved_at"`   // unix seconds of the login
}
