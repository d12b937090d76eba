package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SQLTokenStore keeps the token as one row of the client_state table:
//
//	CREATE TABLE client_state (
//		storage_key VARCHAR(64) PRIMARY KEY,
//		value       TEXT NOT NULL,
//		updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
//	)
type SQLTokenStore struct {
	db  *sql.DB
	key string
}

// NewSQLTokenStore creates a store that reads and writes the TokenKey row.
func NewSQLTokenStore(db *sql.DB) *SQLTokenStore {
	return &SQLTokenStore{db: db, key: TokenKey}
}

func (s *SQLTokenStore) Load(ctx context.Context) (string, bool, error) {
	query := `SELECT value FROM client_state WHERE storage_key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, s.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	return value, value != "", nil
}

func (s *SQLTokenStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	query := `INSERT INTO client_state (storage_key, value) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`

	_, err := s.db.ExecContext(ctx, query, s.key, token)
	return err
}

func (s *SQLTokenStore) Clear(ctx context.Context) error {
	query := `DELETE FROM client_state WHERE storage_key = ?`

	_, err := s.db.ExecContext(ctx, query, s.key)
	return err
}
