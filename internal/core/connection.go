package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Transport is a line-oriented bidirectional channel to one peer.
type Transport interface {
	ReadLine(ctx context.Context) (string, error)
	WriteLine(ctx context.Context, line string) error
	Close() error
	RemoteAddr() string
}

// Connection is one live channel plus its session state.
type Connection struct {
	ID string

	transport Transport
	writeMu   sync.Mutex

	mu      sync.RWMutex
	loginID string

	closeOnce sync.Once
	done      chan struct{}
}

// NewConnection wraps a transport with a fresh identity.
func NewConnection(t Transport) *Connection {
	return &Connection{
		ID:        uuid.NewString(),
		transport: t,
		done:      make(chan struct{}),
	}
}

// LoginID returns the login identity and whether it has been set.
func (c *Connection) LoginID() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loginID, c.loginID != ""
}

// setLoginID assigns the identity once. Callers hold the registry lock.
func (c *Connection) setLoginID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loginID != "" {
		return ErrAlreadyLoggedIn
	}
	c.loginID = id
	return nil
}

// RemoteAddr describes the peer.
func (c *Connection) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// String returns the login id when known, the remote address otherwise.
func (c *Connection) String() string {
	if id, ok := c.LoginID(); ok {
		return id + " (" + c.RemoteAddr() + ")"
	}
	return c.RemoteAddr()
}

// Receive blocks until the next line arrives from the peer.
func (c *Connection) Receive(ctx context.Context) (string, error) {
	return c.transport.ReadLine(ctx)
}

// Send writes one line. Concurrent senders are serialized.
func (c *Connection) Send(ctx context.Context, line string) error {
	if c.Closed() {
		return ErrConnectionClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteLine(ctx, line)
}

// Close shuts the transport down. Repeated calls return nil.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.transport.Close()
		close(c.done)
	})
	return err
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}
