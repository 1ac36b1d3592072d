package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/expensedash/internal/metrics"
	"github.com/mmynk/expensedash/internal/protocol"
)

// Handler handles one parsed command for a session.
type Handler func(ctx context.Context, cmd protocol.Command) error

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain wraps h so that the first middleware runs outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logging logs every command with its duration and outcome, and records
// the command metrics.
func Logging(m *metrics.Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, cmd protocol.Command) error {
			start := time.Now()
			name := cmd.Name()

			err := next(ctx, cmd)

			elapsed := time.Since(start)
			m.CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())

			attrs := []any{
				"command", name,
				"session_id", GetSessionID(ctx),
				"username", GetUsername(ctx),
				"duration_ms", elapsed.Milliseconds(),
			}

			var re *protocol.ReplyError
			switch {
			case err == nil:
				m.Commands.WithLabelValues(name, "ok").Inc()
				slog.Info("Command ok", attrs...)
			case errors.As(err, &re) && re.Kind != protocol.KindFailure:
				m.Commands.WithLabelValues(name, re.Kind.String()).Inc()
				slog.Warn("Command rejected", append(attrs, "reply", re.Line, "error", re.Err)...)
			default:
				m.Commands.WithLabelValues(name, protocol.KindFailure.String()).Inc()
				slog.Error("Command failed", append(attrs, "error", err)...)
			}

			return err
		}
	}
}
