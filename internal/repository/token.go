package repository

import (
	"context"
	"errors"
	"sync"
)

// TokenKey is the fixed storage key under which the access token is persisted.
const TokenKey = "access_token"

var ErrEmptyToken = errors.New("token must not be empty")

// TokenStore persists the single bearer token. It tracks presence only; expiry
// is the session manager's concern.
type TokenStore interface {
	// Load returns the stored token and whether one was present.
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, token string) error
	// Clear removes the token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != "", nil
}

func (s *MemoryTokenStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
