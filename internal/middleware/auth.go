package middleware

import (
	"context"

	"github.com/mmynk/expensedash/internal/protocol"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UsernameKey is the context key for the logged-in username.
	UsernameKey contextKey = "username"
	// SessionIDKey is the context key for the session id.
	SessionIDKey contextKey = "session_id"
)

// WithUsername returns ctx carrying the logged-in username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// GetUsername extracts the username from the context.
// Returns empty string if the session is not logged in.
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(UsernameKey).(string)
	return username
}

// WithSessionID returns ctx carrying the session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// GetSessionID extracts the session id from the context.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

// RequireLogin rejects the named commands with <CMD>_ERR|User not logged in
// unless the context carries a username. Other commands pass through.
func RequireLogin(commands ...string) Middleware {
	guarded := make(map[string]bool, len(commands))
	for _, c := range commands {
		guarded[c] = true
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, cmd protocol.Command) error {
			if guarded[cmd.Name()] && GetUsername(ctx) == "" {
				return protocol.Invalid(cmd.Name(), protocol.ReasonNotLoggedIn)
			}
			return next(ctx, cmd)
		}
	}
}
