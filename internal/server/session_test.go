package server

import (
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/linechat/internal/store"
)

func TestSessionLoginAndBroadcast(t *testing.T) {
	srv, rec := newTestServer(t, Options{})

	alice := attach(t, srv)
	bob := attach(t, srv)
	mustLen(t, srv.Registry(), 2)

	alice.send(t, "#login alice")
	bob.send(t, "#login bob")
	mustLogin(t, srv.Registry(), "alice")
	mustLogin(t, srv.Registry(), "bob")

	alice.send(t, "hello #everyone")
	alice.mustLine(t, "alice > hello #everyone")
	bob.mustLine(t, "alice > hello #everyone")

	bob.send(t, "hi")
	alice.mustLine(t, "bob > hi")
	bob.mustLine(t, "bob > hi")

	if !rec.WaitFor("Message received: hello #everyone from alice", waitTimeout) {
		t.Fatalf("expected message to be displayed, got %q", rec.Lines())
	}
}

func TestSessionDuplicateLoginIDRejected(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	alice := attach(t, srv)
	bob := attach(t, srv)
	alice.send(t, "#login id1")
	bob.send(t, "#login id2")
	mustLogin(t, srv.Registry(), "id1")
	mustLogin(t, srv.Registry(), "id2")

	third := attach(t, srv)
	mustLen(t, srv.Registry(), 3)

	third.send(t, "#login id1")
	third.mustLine(t, "Error, login ID id1 already in use")
	third.mustClosed(t)
	mustLen(t, srv.Registry(), 2)

	// The others keep chatting.
	alice.send(t, "still here")
	alice.mustLine(t, "id1 > still here")
	bob.mustLine(t, "id1 > still here")
}

func TestSessionSecondLoginClosesOnlyThatConnection(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	alice := attach(t, srv)
	bob := attach(t, srv)
	alice.send(t, "#login alice")
	bob.send(t, "#login bob")
	mustLogin(t, srv.Registry(), "alice")
	mustLogin(t, srv.Registry(), "bob")

	alice.send(t, "#login carol")
	alice.mustLine(t, "Error, user already logged in")
	alice.mustClosed(t)
	mustLen(t, srv.Registry(), 1)

	bob.mustSilent(t)
	bob.send(t, "anyone?")
	bob.mustLine(t, "bob > anyone?")
}

func TestSessionFirstMessageMustBeLogin(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "chat", line: "hello"},
		{name: "login without id", line: "#login"},
		{name: "unknown command", line: "#quit"},
		{name: "empty line", line: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, Options{})

			watcher := attach(t, srv)
			watcher.send(t, "#login watcher")
			mustLogin(t, srv.Registry(), "watcher")

			p := attach(t, srv)
			mustLen(t, srv.Registry(), 2)

			p.send(t, tt.line)
			p.mustLine(t, "Error, first message must be #login <id>")
			p.mustClosed(t)
			mustLen(t, srv.Registry(), 1)

			watcher.mustSilent(t)
		})
	}
}

func TestSessionInvalidLinesAreNotBroadcast(t *testing.T) {
	srv, rec := newTestServer(t, Options{})

	alice := attach(t, srv)
	bob := attach(t, srv)
	alice.send(t, "#login alice")
	bob.send(t, "#login bob")
	mustLogin(t, srv.Registry(), "alice")
	mustLogin(t, srv.Registry(), "bob")

	alice.send(t, "#unknown x")
	alice.mustLine(t, "Invalid command")
	alice.send(t, "#login")
	alice.mustLine(t, "Invalid command")
	alice.send(t, "")
	alice.mustLine(t, "Error, empty message")

	bob.mustSilent(t)
	if rec.Count("Message received") != 0 {
		t.Fatalf("invalid lines must not be relayed: %q", rec.Lines())
	}
	mustLen(t, srv.Registry(), 2)
}

func TestSessionDisconnect(t *testing.T) {
	journal := &memJournal{}
	srv, rec := newTestServer(t, Options{Journal: journal})

	alice := attach(t, srv)
	alice.send(t, "#login alice")
	mustLogin(t, srv.Registry(), "alice")

	_ = alice.conn.Close()

	select {
	case err := <-alice.served:
		if err != nil {
			t.Fatalf("expected clean close, got %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("session did not end")
	}
	mustLen(t, srv.Registry(), 0)

	if !rec.WaitFor("has disconnected from the server.", waitTimeout) {
		t.Fatalf("expected disconnect line, got %q", rec.Lines())
	}
	if rec.Count("due to an error") != 0 {
		t.Fatalf("clean close reported as error: %q", rec.Lines())
	}

	want := []store.EventKind{store.EventConnected, store.EventAuthenticated, store.EventDisconnected}
	if got := journal.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected journal %v, got %v", want, got)
	}
}

func TestSessionRejectIsJournaled(t *testing.T) {
	journal := &memJournal{}
	srv, _ := newTestServer(t, Options{Journal: journal})

	p := attach(t, srv)
	p.send(t, "hi")
	p.mustLine(t, "Error, first message must be #login <id>")
	p.mustClosed(t)
	<-p.served

	want := []store.EventKind{store.EventConnected, store.EventRejected, store.EventDisconnected}
	if got := journal.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected journal %v, got %v", want, got)
	}
}

func TestSessionRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{MessagesPerMinute: 1})

	alice := attach(t, srv)
	alice.send(t, "#login alice")
	mustLogin(t, srv.Registry(), "alice")

	alice.send(t, "one")
	alice.mustLine(t, "alice > one")
	alice.send(t, "two")
	alice.mustLine(t, "Error, rate limit exceeded")
}

func TestStateString(t *testing.T) {
	if StateConnected.String() != "connected" || StateAuthenticated.String() != "authenticated" || StateClosed.String() != "closed" {
		t.Fatalf("unexpected state names")
	}
}

func TestSessionOverlongLineDisconnects(t *testing.T) {
	journal := &memJournal{}
	srv, rec := newTestServer(t, Options{ListenHost: "127.0.0.1", MaxLineBytes: 16, Journal: journal})
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	p := dial(t, srv.Port())
	p.send(t, "#login alice")
	mustLogin(t, srv.Registry(), "alice")

	p.send(t, "this line is longer than sixteen bytes")
	p.mustClosed(t)
	mustLen(t, srv.Registry(), 0)

	if !rec.WaitFor("has disconnected from the server due to an error", waitTimeout) {
		t.Fatalf("expected error disconnect, got %q", rec.Lines())
	}
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if kinds := journal.kinds(); len(kinds) > 0 && kinds[len(kinds)-1] == store.EventFailed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected failed event last, got %v", journal.kinds())
}
