package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrEmptyUsername   = errors.New("username is required")
	ErrInvalidUsername = errors.New("username contains whitespace or control characters")
	ErrLongUsername    = errors.New("username is too long")
)

// MaxUsernameLength is the longest accepted username in runes.
const MaxUsernameLength = 64

// UserStorage defines the interface for user persistence operations.
type UserStorage interface {
	RegisterUser(ctx context.Context, username, token string) error
	ValidateUser(ctx context.Context, username, token string) (bool, error)
}

// TokenAuthenticator compares an opaque token against the stored one.
// Tokens are stored and compared as given; no hashing takes place.
type TokenAuthenticator struct {
	storage UserStorage
}

var _ Authenticator = (*TokenAuthenticator)(nil)

// NewTokenAuthenticator creates a new token-based authenticator.
func NewTokenAuthenticator(storage UserStorage) *TokenAuthenticator {
	return &TokenAuthenticator{storage: storage}
}

// ValidateUsername rejects names that would break line framing or logs.
func (a *TokenAuthenticator) ValidateUsername(username string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return ErrLongUsername
	}
	if strings.ContainsFunc(username, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == '|'
	}) {
		return ErrInvalidUsername
	}
	return nil
}

// Register stores a new user. Duplicate usernames are detected by the
// storage constraint.
func (a *TokenAuthenticator) Register(ctx context.Context, username, credential string) error {
	if err := a.ValidateUsername(username); err != nil {
		return err
	}
	if err := a.storage.RegisterUser(ctx, username, credential); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// Authenticate reports whether username exists with exactly this token.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, username, credential string) (bool, error) {
	ok, err := a.storage.ValidateUser(ctx, username, credential)
	if err != nil {
		return false, fmt.Errorf("failed to validate user: %w", err)
	}
	return ok, nil
}
