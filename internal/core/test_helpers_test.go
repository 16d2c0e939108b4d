package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeTransport records written lines and serves queued inbound lines.
type fakeTransport struct {
	remote   string
	inbound  chan string
	writeErr error

	mu      sync.Mutex
	written []string
	closes  int
	closed  chan struct{}
}

func newFakeTransport(remote string) *fakeTransport {
	return &fakeTransport{
		remote:  remote,
		inbound: make(chan string, 8),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-f.inbound:
		return line, nil
	case <-f.closed:
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeTransport) WriteLine(_ context.Context, line string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, line)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closes == 1 {
		close(f.closed)
		return nil
	}
	return errors.New("already closed")
}

func (f *fakeTransport) RemoteAddr() string { return f.remote }

func (f *fakeTransport) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func mustLines(t *testing.T, f *fakeTransport, want ...string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got := f.lines()
		if len(got) >= len(want) {
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
				}
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected lines %q, got %q", want, f.lines())
}
