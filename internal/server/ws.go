package server

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmynk/expensedash/internal/session"
)

// wsConn carries protocol lines over a WebSocket. Each outgoing line is one
// text message; an incoming message may hold several lines.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pending      []string

	mu sync.Mutex
}

var _ session.Conn = (*wsConn)(nil)

func newWSConn(conn *websocket.Conn, maxLineBytes int, writeTimeout time.Duration) *wsConn {
	conn.SetReadLimit(int64(maxLineBytes))
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", err
		}
		text := strings.TrimSuffix(string(data), "\n")
		c.pending = strings.Split(text, "\n")
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return strings.TrimSuffix(line, "\r"), nil
}

func (c *wsConn) WriteLines(lines ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeLines(lines); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

func (c *wsConn) writeLines(lines []string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	for _, line := range lines {
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return err
		}
	}
	return nil
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// WebSocketHandler upgrades the request and runs a session over it until the
// socket closes.
func (s *Server) WebSocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("Failed to upgrade WebSocket", "remote_addr", r.RemoteAddr, "error", err)
			return
		}

		s.wg.Add(1)
		defer s.wg.Done()
		s.serveConn(r.Context(), newWSConn(conn, s.maxLineBytes, s.writeTimeout))
	})
}
