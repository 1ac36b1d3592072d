// Package session runs the per-connection protocol loop.
//
// A Session owns one client connection. It reads lines, parses them into
// protocol commands, runs them through the middleware chain and writes the
// replies. Mutations that other clients must observe are pushed through the
// registry.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/expensedash/internal/metrics"
	"github.com/mmynk/expensedash/internal/middleware"
	"github.com/mmynk/expensedash/internal/protocol"
	"github.com/mmynk/expensedash/internal/registry"
	"github.com/mmynk/expensedash/internal/service"
	"github.com/mmynk/expensedash/internal/snapshot"
)

// Conn is a line-oriented client connection. WriteLines must be safe for
// concurrent use and write a batch contiguously.
type Conn interface {
	ReadLine() (string, error)
	WriteLines(lines ...string) error
	Close() error
	RemoteAddr() string
}

// Deps are the shared components every session uses.
type Deps struct {
	Auth      *service.AuthService
	Groups    *service.GroupService
	Expenses  *service.ExpenseService
	Snapshots *snapshot.Builder
	Registry  *registry.Registry
	Metrics   *metrics.Metrics
}

// loginRequired lists the commands whose only identity source is the session.
var loginRequired = []string{
	protocol.CmdRequestSnapshot,
	protocol.CmdAddGroup,
	protocol.CmdRequestJoin,
	protocol.CmdApproveJoin,
	protocol.CmdRejectJoin,
}

// errWrite marks a failed write to the session's own connection.
var errWrite = errors.New("write to client failed")

// Session is one connected client.
type Session struct {
	id     string
	conn   Conn
	deps   *Deps
	handle middleware.Handler

	mu       sync.RWMutex
	username string
}

var _ registry.Peer = (*Session)(nil)

// New creates a session for conn.
func New(conn Conn, deps *Deps) *Session {
	s := &Session{
		id:   uuid.NewString(),
		conn: conn,
		deps: deps,
	}
	s.handle = middleware.Chain(s.dispatch,
		middleware.Logging(deps.Metrics),
		middleware.RequireLogin(loginRequired...),
	)
	return s
}

func (s *Session) ID() string { return s.id }

// Username returns the logged-in username, or "" before LOGIN.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) setUsername(username string) {
	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
}

func (s *Session) WriteLines(lines ...string) error {
	return s.conn.WriteLines(lines...)
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// Serve registers the session, runs the read loop until the connection ends
// and then unregisters it. A clean disconnect returns nil.
func (s *Session) Serve(ctx context.Context) error {
	s.deps.Registry.Add(s)
	defer s.deps.Registry.Remove(s)
	defer s.conn.Close()

	slog.Info("Session started", "session_id", s.id, "remote_addr", s.conn.RemoteAddr())
	defer func() {
		slog.Info("Session ended", "session_id", s.id, "username", s.Username())
	}()

	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := s.handleLine(ctx, line); err != nil {
			return err
		}
	}
}

// handleLine processes one line. Only a failed write to the client is
// returned; every other failure becomes a reply.
func (s *Session) handleLine(ctx context.Context, line string) error {
	cmd, err := protocol.Parse(line)
	if errors.Is(err, protocol.ErrUnknownCommand) {
		s.deps.Metrics.UnknownCommands.Inc()
		slog.Debug("Ignoring unknown command", "session_id", s.id, "error", err)
		return nil
	}
	var pe *protocol.ParseError
	if errors.As(err, &pe) {
		s.deps.Metrics.Commands.WithLabelValues(pe.Command, protocol.KindInvalid.String()).Inc()
		slog.Warn("Malformed command", "session_id", s.id, "command", pe.Command, "error", pe.Msg)
		return s.reply(pe.Line())
	}
	if err != nil {
		slog.Warn("Unparseable line", "session_id", s.id, "error", err)
		return nil
	}

	ctx = middleware.WithSessionID(ctx, s.id)
	if u := s.Username(); u != "" {
		ctx = middleware.WithUsername(ctx, u)
	}

	err = s.handle(ctx, cmd)
	if err == nil || errors.Is(err, errWrite) {
		return err
	}

	var re *protocol.ReplyError
	if errors.As(err, &re) {
		return s.reply(re.Line)
	}
	return s.reply(protocol.ErrorLine(cmd.Name(), err.Error()))
}

// reply writes to this session only.
func (s *Session) reply(lines ...string) error {
	if err := s.conn.WriteLines(lines...); err != nil {
		return fmt.Errorf("%w: %v", errWrite, err)
	}
	return nil
}
