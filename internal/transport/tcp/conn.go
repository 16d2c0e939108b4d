// Package tcp carries newline-delimited text lines over TCP.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// DefaultMaxLineBytes bounds a line when no limit is configured.
const DefaultMaxLineBytes = bufio.MaxScanTokenSize

// ErrLineTooLong is returned by ReadLine for a line over the limit.
var ErrLineTooLong = errors.New("line too long")

// Conn adapts a net.Conn to a line transport.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	max     int
}

// NewConn wraps an established connection. Lines longer than maxLineBytes
// fail with ErrLineTooLong; maxLineBytes <= 0 means DefaultMaxLineBytes.
func NewConn(conn net.Conn, maxLineBytes int) *Conn {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	scanner := bufio.NewScanner(conn)
	// +2 leaves room for "\r\n".
	scanner.Buffer(make([]byte, 0, min(4096, maxLineBytes+2)), maxLineBytes+2)
	return &Conn{
		conn:    conn,
		scanner: scanner,
		max:     maxLineBytes,
	}
}

// ReadLine returns the next line without its terminator.
// A final unterminated line is returned before io.EOF.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(time.Time{})
	}
	if !c.scanner.Scan() {
		err := c.scanner.Err()
		if err == nil {
			return "", io.EOF
		}
		if errors.Is(err, bufio.ErrTooLong) {
			return "", fmt.Errorf("%w: over %d bytes", ErrLineTooLong, c.max)
		}
		return "", err
	}
	line := c.scanner.Text()
	if len(line) > c.max {
		return "", fmt.Errorf("%w: over %d bytes", ErrLineTooLong, c.max)
	}
	return line, nil
}

// WriteLine writes line followed by a newline.
func (c *Conn) WriteLine(ctx context.Context, line string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dial connects to host:port.
func Dial(ctx context.Context, host string, port int) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial %s:%d: %w", host, port, err)
	}
	return NewConn(conn, 0), nil
}

// Listen binds a TCP listener on host:port.
func Listen(host string, port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen %s:%d: %w", host, port, err)
	}
	return ln, nil
}

// Port extracts the bound port of a listener.
func Port(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
