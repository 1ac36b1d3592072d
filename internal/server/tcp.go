// Package server exposes sessions over TCP and WebSocket and serves the
// admin HTTP endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mmynk/expensedash/internal/config"
	"github.com/mmynk/expensedash/internal/session"
)

// Server accepts client connections and runs one session per connection.
type Server struct {
	deps         *session.Deps
	maxLineBytes int
	writeTimeout time.Duration

	wg sync.WaitGroup
}

// New creates a Server sharing deps across all sessions.
func New(deps *session.Deps, cfg config.Config) *Server {
	maxLine := cfg.MaxLineBytes
	if maxLine <= 0 {
		maxLine = config.DefaultMaxLineBytes
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = config.DefaultWriteTimeout
	}
	return &Server{
		deps:         deps,
		maxLineBytes: maxLine,
		writeTimeout: timeout,
	}
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed.
// Cancelling ctx closes ln; open sessions keep running until their
// connections close.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	slog.Info("Line protocol listening", "address", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, newLineConn(conn, s.maxLineBytes, s.writeTimeout))
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn session.Conn) {
	sess := session.New(conn, s.deps)
	if err := sess.Serve(ctx); err != nil {
		slog.Warn("Session closed with error",
			"session_id", sess.ID(),
			"remote_addr", conn.RemoteAddr(),
			"error", err,
		)
	}
}

// Wait blocks until every session started by this server has ended.
func (s *Server) Wait() {
	s.wg.Wait()
}
