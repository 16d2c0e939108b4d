package server

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/linechat/internal/console"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store"
	"github.com/vovakirdan/linechat/internal/transport/tcp"
)

const waitTimeout = 2 * time.Second

func newTestServer(t *testing.T, opts Options) (*Server, *console.Recorder) {
	t.Helper()

	rec := console.NewRecorder()
	srv := New(opts, rec, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, rec
}

// peer is the remote end of a session.
type peer struct {
	conn   net.Conn
	lines  chan string
	served chan error
}

// attach runs a session over an in-memory pipe.
func attach(t *testing.T, srv *Server) *peer {
	t.Helper()

	client, server := net.Pipe()
	p := &peer{
		conn:   client,
		lines:  make(chan string, 64),
		served: make(chan error, 1),
	}
	go func() {
		p.served <- srv.ServeConn(context.Background(), tcp.NewConn(server, 0))
	}()
	go p.readLoop()
	t.Cleanup(func() { _ = client.Close() })
	return p
}

// dial connects to a listening server over loopback TCP.
func dial(t *testing.T, port int) *peer {
	t.Helper()

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	p := &peer{conn: conn, lines: make(chan string, 64)}
	go p.readLoop()
	t.Cleanup(func() { _ = conn.Close() })
	return p
}

func (p *peer) readLoop() {
	defer close(p.lines)
	scanner := bufio.NewScanner(p.conn)
	for scanner.Scan() {
		p.lines <- scanner.Text()
	}
}

func (p *peer) send(t *testing.T, line string) {
	t.Helper()
	_ = p.conn.SetWriteDeadline(time.Now().Add(waitTimeout))
	if _, err := p.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("send %q: %v", line, err)
	}
}

func (p *peer) mustLine(t *testing.T, want string) {
	t.Helper()
	select {
	case got, ok := <-p.lines:
		if !ok {
			t.Fatalf("connection closed, expected %q", want)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("expected %q, got nothing", want)
	}
}

func (p *peer) mustClosed(t *testing.T) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return
			}
			t.Fatalf("expected close, got %q", line)
		case <-deadline:
			t.Fatalf("connection was not closed")
		}
	}
}

func (p *peer) mustSilent(t *testing.T) {
	t.Helper()
	select {
	case line, ok := <-p.lines:
		if ok {
			t.Fatalf("expected no line, got %q", line)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func mustLen(t *testing.T, reg *core.Registry, n int) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if reg.Len() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d registered connections, got %d", n, reg.Len())
}

func mustLogin(t *testing.T, reg *core.Registry, id string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		for _, info := range reg.Snapshot() {
			if info.LoginID == id {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("login %q never completed", id)
}

// memJournal keeps session events in memory.
type memJournal struct {
	mu     sync.Mutex
	events []*store.SessionEvent
}

func (j *memJournal) RecordSession(_ context.Context, ev *store.SessionEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	ev.ID = int64(len(j.events) + 1)
	ev.CreatedAt = time.Now()
	j.events = append(j.events, ev)
	return nil
}

func (j *memJournal) ListSessionEvents(_ context.Context, connID string, _ int) ([]*store.SessionEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*store.SessionEvent
	for _, ev := range j.events {
		if connID == "" || ev.ConnID == connID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (j *memJournal) Close() error { return nil }

func (j *memJournal) kinds() []store.EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	kinds := make([]store.EventKind, 0, len(j.events))
	for _, ev := range j.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}
