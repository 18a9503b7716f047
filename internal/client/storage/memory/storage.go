package memory

import (
	"context"
	"sync"

	"github.com/iudanet/gophnotes/internal/client/storage"
)

// Storage keeps the session in process memory only.
// Used by the interactive shell with --ephemeral and by tests.
type Storage struct {
	session *storage.SessionData
	mu      sync.Mutex
}

var _ storage.SessionStorage = (*Storage)(nil)

// New creates an empty in-memory session storage
func New() *Storage {
	return &Storage{}
}

// SaveSession stores a copy of the session
func (s *Storage) SaveSession(ctx context.Context, session *storage.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.session = &cp
	return nil
}

// GetSession returns a copy of the stored session
func (s *Storage) GetSession(ctx context.Context) (*storage.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, storage.ErrSessionNotFound
	}
	cp := *s.session
	return &cp, nil
}

// DeleteSession removes the stored session
func (s *Storage) DeleteSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return storage.ErrSessionNotFound
	}
	s.session = nil
	return nil
}
