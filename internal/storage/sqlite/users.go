package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/expensedash/internal/storage"
)

// RegisterUser inserts a new user into the database.
func (s *SQLiteStore) RegisterUser(ctx context.Context, username, token string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, token, created_at) VALUES (?, ?, ?)",
		username, token, time.Now().Unix(),
	)
	if isConstraintViolation(err) {
		return storage.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ValidateUser checks username and token in one query so that an unknown
// username and a wrong token take the same path.
func (s *SQLiteStore) ValidateUser(ctx context.Context, username, token string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ? AND token = ?",
		username, token,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to validate user: %w", err)
	}
	return count > 0, nil
}

// UserExists reports whether username is registered.
func (s *SQLiteStore) UserExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ?",
		username,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}
