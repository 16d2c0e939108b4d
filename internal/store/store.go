package store

import (
	"context"
	"time"
)

// EventKind names a session lifecycle transition.
type EventKind string

const (
	EventConnected     EventKind = "connected"
	EventAuthenticated EventKind = "authenticated"
	EventRejected      EventKind = "rejected"
	EventDisconnected  EventKind = "disconnected"
	EventFailed        EventKind = "failed"
)

// SessionEvent is one journal entry.
type SessionEvent struct {
	ID        int64
	ConnID    string
	LoginID   string
	Remote    string
	Kind      EventKind
	Detail    string
	CreatedAt time.Time
}

// Journal records session lifecycle events. Chat payloads are never stored.
type Journal interface {
	// RecordSession appends an event. CreatedAt is filled in when zero.
	RecordSession(ctx context.Context, ev *SessionEvent) error

	// ListSessionEvents returns the most recent events, newest last.
	// If connID is not empty only that connection's events are returned.
	ListSessionEvents(ctx context.Context, connID string, limit int) ([]*SessionEvent, error)

	// Close closes the underlying database connection.
	Close() error
}
