package auth

import "context"

// Authenticator defines the interface for authentication implementations.
// The session layer only depends on this interface, so the static token
// comparison can be swapped without touching command handling.
type Authenticator interface {
	// Register creates a new user account with the given credential.
	// Returns storage.ErrDuplicateUser if the username is taken.
	Register(ctx context.Context, username, credential string) error

	// Authenticate verifies the user's credential. A false result with a nil
	// error means the credential was rejected.
	Authenticate(ctx context.Context, username, credential string) (bool, error)

	// ValidateUsername checks that a username can be stored and echoed on
	// the wire.
	ValidateUsername(username string) error
}
