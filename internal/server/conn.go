package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mmynk/expensedash/internal/session"
)

// lineConn frames a stream connection into newline-terminated lines.
type lineConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	maxLineBytes int
	writeTimeout time.Duration

	mu sync.Mutex
	w  *bufio.Writer
}

var _ session.Conn = (*lineConn)(nil)

func newLineConn(conn net.Conn, maxLineBytes int, writeTimeout time.Duration) *lineConn {
	scanner := bufio.NewScanner(conn)
	// The limit is the larger of max and cap(buf), so the initial buffer
	// must not exceed it.
	scanner.Buffer(make([]byte, 0, min(4096, maxLineBytes)), maxLineBytes)
	return &lineConn{
		conn:         conn,
		scanner:      scanner,
		maxLineBytes: maxLineBytes,
		writeTimeout: writeTimeout,
		w:            bufio.NewWriter(conn),
	}
}

// ReadLine returns the next line without its terminator. A trailing \r is
// dropped by the scanner.
func (c *lineConn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return c.scanner.Text(), nil
	}
	err := c.scanner.Err()
	if err == nil {
		return "", io.EOF
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return "", fmt.Errorf("line exceeds %d bytes: %w", c.maxLineBytes, err)
	}
	return "", err
}

// WriteLines writes the batch under one lock and one deadline. A failed
// write closes the connection: the buffered writer keeps its error and may
// have left a partial line on the wire, so the session must end.
func (c *lineConn) WriteLines(lines ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeLines(lines); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

func (c *lineConn) writeLines(lines []string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := c.w.WriteString(line); err != nil {
			return err
		}
		if err := c.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return c.w.Flush()
}

func (c *lineConn) Close() error {
	return c.conn.Close()
}

func (c *lineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
