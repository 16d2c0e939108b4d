package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/vovakirdan/linechat/internal/store"
)

func TestRecordAndListSessionEvents(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	seed := []store.SessionEvent{
		{ConnID: "c1", Remote: "127.0.0.1:1000", Kind: store.EventConnected},
		{ConnID: "c2", Remote: "127.0.0.1:1001", Kind: store.EventConnected},
		{ConnID: "c1", LoginID: "alice", Kind: store.EventAuthenticated},
		{ConnID: "c2", Kind: store.EventRejected, Detail: "Error, login ID alice already in use"},
		{ConnID: "c1", LoginID: "alice", Kind: store.EventDisconnected},
	}
	for i := range seed {
		ev := seed[i]
		if err := s.RecordSession(ctx, &ev); err != nil {
			t.Fatalf("record event %d: %v", i, err)
		}
		if ev.ID == 0 || ev.CreatedAt.IsZero() {
			t.Fatalf("expected id and timestamp to be filled: %+v", ev)
		}
	}

	tests := []struct {
		name     string
		connID   string
		limit    int
		expected []store.EventKind
	}{
		{
			name:     "all events",
			expected: []store.EventKind{store.EventConnected, store.EventConnected, store.EventAuthenticated, store.EventRejected, store.EventDisconnected},
		},
		{
			name:     "single connection",
			connID:   "c1",
			expected: []store.EventKind{store.EventConnected, store.EventAuthenticated, store.EventDisconnected},
		},
		{
			name:     "limit keeps newest",
			limit:    2,
			expected: []store.EventKind{store.EventRejected, store.EventDisconnected},
		},
		{
			name:     "unknown connection",
			connID:   "nope",
			expected: []store.EventKind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.ListSessionEvents(ctx, tt.connID, tt.limit)
			if err != nil {
				t.Fatalf("ListSessionEvents failed: %v", err)
			}
			if len(events) != len(tt.expected) {
				t.Fatalf("expected %d events, got %d", len(tt.expected), len(events))
			}
			for i, ev := range events {
				if ev.Kind != tt.expected[i] {
					t.Errorf("expected %s at index %d, got %s", tt.expected[i], i, ev.Kind)
				}
			}
		})
	}
}

func TestNewWithSetupRunsAfterSchema(t *testing.T) {
	s, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO session_events (conn_id, kind, created_at) VALUES ('seed', 'connected', CURRENT_TIMESTAMP)`)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	events, err := s.ListSessionEvents(context.Background(), "seed", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].LoginID != "" {
		t.Fatalf("unexpected seeded events: %+v", events)
	}
}
