package models

// User represents a registered account.
type User struct {
	// Username is the unique identity of the user.
	Username string

	// Token is the opaque credential supplied by the client at registration.
	// The server compares it byte for byte and never hashes it.
	Token string

	// CreatedAt is the Unix timestamp when the user registered.
	CreatedAt int64
}
