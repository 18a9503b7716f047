package notesync

import (
	"context"

	"github.com/iudanet/gophnotes/internal/models"
)

// Session is the part of the session store the engine depends on.
// auth.Store implements it.
type Session interface {
	// AuthorizedRequest sends a request with the current bearer token
	AuthorizedRequest(ctx context.Context, method, path string, body, result any) error
	// CurrentIdentity resolves the user that owns the token
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
	// ExpireSession ends the session whose token was rejected in err, unless a
	// newer login replaced it. Reports whether the client is left without a session.
	ExpireSession(ctx context.Context, err error) bool
	// State reports whether a token is present
	State() models.SessionState
	// Subscribe is called on every session state change
	Subscribe(fn func(models.SessionState)) (cancel func())
}
