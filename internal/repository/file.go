package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blognest/blognest-go/internal/crypto"
)

// FileTokenStore persists the token in a single file readable only by the
// owner. With a sealer configured the token is encrypted at rest.
type FileTokenStore struct {
	mu     sync.Mutex
	path   string
	sealer *crypto.Sealer
}

// NewFileTokenStore creates a store at path. sealer may be nil.
func NewFileTokenStore(path string, sealer *crypto.Sealer) *FileTokenStore {
	return &FileTokenStore{path: path, sealer: sealer}
}

func (s *FileTokenStore) Load(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading token file: %w", err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", false, nil
	}

	if crypto.IsSealed(value) {
		if s.sealer == nil {
			return "", false, crypto.ErrUnsealFailed
		}
		value, err = s.sealer.Open(value)
		if err != nil {
			return "", false, err
		}
	}

	return value, true, nil
}

func (s *FileTokenStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	value := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return err
		}
		value = sealed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}

	// Replace atomically.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
