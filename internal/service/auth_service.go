package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/expensedash/internal/auth"
)

// AuthService handles REGISTER and LOGIN.
type AuthService struct {
	authenticator auth.Authenticator
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, username, token string) error {
	if err := s.authenticator.Register(ctx, username, token); err != nil {
		return err
	}
	s.logger.Info("User registered", "username", username)
	return nil
}

// Login reports whether the credentials match a registered user.
func (s *AuthService) Login(ctx context.Context, username, token string) (bool, error) {
	ok, err := s.authenticator.Authenticate(ctx, username, token)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Info("Login rejected", "username", username)
		return false, nil
	}
	s.logger.Info("User logged in", "username", username)
	return true, nil
}
