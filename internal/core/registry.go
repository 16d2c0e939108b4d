package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SessionInfo describes one registered connection.
type SessionInfo struct {
	ID      string
	LoginID string
	Remote  string
}

// Registry is the set of open connections on a server.
type Registry struct {
	mu      sync.RWMutex
	conns   map[*Connection]struct{}
	display Display
	log     *zerolog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(display Display, logger *zerolog.Logger) *Registry {
	if display == nil {
		display = Discard
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		conns:   make(map[*Connection]struct{}),
		display: display,
		log:     logger,
	}
}

// Register inserts a connection. Returns true if newly added.
func (r *Registry) Register(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c]; exists {
		return false
	}
	r.conns[c] = struct{}{}
	return true
}

// Unregister deletes a connection. Returns true if removed.
func (r *Registry) Unregister(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c]; !exists {
		return false
	}
	delete(r.conns, c)
	return true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Login assigns id to c if c has no identity yet and no other
// registered connection holds id.
func (r *Registry) Login(c *Connection, id string) error {
	if id == "" {
		return coreError(ErrCodeBadLogin, "Error, login ID must not be empty", ErrEmptyLoginID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; !ok {
		return ErrNotRegistered
	}
	if _, ok := c.LoginID(); ok {
		return coreError(ErrCodeAlreadyLoggedIn, "Error, user already logged in", ErrAlreadyLoggedIn)
	}
	for other := range r.conns {
		if other == c {
			continue
		}
		if held, ok := other.LoginID(); ok && held == id {
			return coreError(ErrCodeLoginTaken, fmt.Sprintf("Error, login ID %s already in use", id), ErrLoginTaken)
		}
	}
	return c.setLoginID(id)
}

// snapshot copies the current membership so callers iterate without the lock.
func (r *Registry) snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Connection, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// ForEach applies fn to every connection registered at call time.
// A connection removed while iterating may still be visited.
func (r *Registry) ForEach(fn func(c *Connection)) {
	for _, c := range r.snapshot() {
		fn(c)
	}
}

// Snapshot describes the registered connections.
func (r *Registry) Snapshot() []SessionInfo {
	conns := r.snapshot()
	infos := make([]SessionInfo, 0, len(conns))
	for _, c := range conns {
		login, _ := c.LoginID()
		infos = append(infos, SessionInfo{ID: c.ID, LoginID: login, Remote: c.RemoteAddr()})
	}
	return infos
}

// Broadcast writes text to every registered connection concurrently and
// returns the number of successful deliveries. Failed writes are reported
// and do not stop delivery to the others.
func (r *Registry) Broadcast(ctx context.Context, text string) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	r.ForEach(func(c *Connection) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Send(ctx, text); err != nil {
				r.log.Warn().Err(err).Str("conn_id", c.ID).Msg("broadcast write failed")
				r.display.Display(fmt.Sprintf("Could not deliver message to %s: %v", c, err))
				return
			}
			mu.Lock()
			delivered++
			mu.Unlock()
		}()
	})
	wg.Wait()
	return delivered
}

// CloseAll closes every registered connection and returns how many were closed.
// Membership is left to the connection workers.
func (r *Registry) CloseAll() int {
	n := 0
	r.ForEach(func(c *Connection) {
		if err := c.Close(); err != nil {
			r.log.Debug().Err(err).Str("conn_id", c.ID).Msg("close connection")
		}
		n++
	})
	return n
}
