package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/vovakirdan/linechat/internal/command"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store"
)

// State is the lifecycle position of one connection.
type State int

const (
	// StateConnected is the initial state: accepted, not logged in.
	StateConnected State = iota
	// StateAuthenticated follows the first valid login.
	StateAuthenticated
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	errFirstMessage   = core.ProtocolError(core.ErrCodeNotAuthenticated, "Error, first message must be #login <id>")
	errInvalidCommand = core.ProtocolError(core.ErrCodeInvalidCommand, "Invalid command")
	errEmptyMessage   = core.ProtocolError(core.ErrCodeEmptyMessage, "Error, empty message")
	errRateLimited    = core.ProtocolError(core.ErrCodeRateLimited, "Error, rate limit exceeded")
)

type session struct {
	srv     *Server
	conn    *core.Connection
	state   State
	limiter *rateLimiter
}

// ServeConn runs the session protocol over t until the peer leaves, the
// session is rejected or ctx is cancelled. It returns the I/O error that
// ended the session, or nil for a clean close.
func (s *Server) ServeConn(ctx context.Context, t core.Transport) error {
	return s.serve(ctx, s.admit(t))
}

func (s *Server) admit(t core.Transport) *core.Connection {
	conn := core.NewConnection(t)
	s.registry.Register(conn)
	return conn
}

func (s *Server) serve(ctx context.Context, conn *core.Connection) error {
	s.log.Info().Str("conn_id", conn.ID).Str("remote", conn.RemoteAddr()).Msg("client connected")
	s.display.Display(fmt.Sprintf("A client: %s has connected to the server.", conn.RemoteAddr()))
	s.record(ctx, conn, store.EventConnected, "")

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-conn.Done():
		}
	}()

	sess := &session{
		srv:     s,
		conn:    conn,
		state:   StateConnected,
		limiter: newRateLimiter(s.rateLimit),
	}
	sess.limiter.startReset(conn.Done())

	err := sess.run(ctx)
	s.disconnect(ctx, conn, err)
	return err
}

func (sess *session) run(ctx context.Context) error {
	for sess.state != StateClosed {
		line, err := sess.conn.Receive(ctx)
		if err != nil {
			if sess.conn.Closed() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		sess.handle(ctx, line)
	}
	return nil
}

func (sess *session) handle(ctx context.Context, line string) {
	cmd, err := command.Parse(line, command.Server)

	if sess.state == StateConnected {
		if err != nil || !cmd.Is(command.Login) {
			sess.reject(ctx, errFirstMessage)
			return
		}
		sess.login(ctx, cmd.Arg(0))
		return
	}

	if err != nil {
		sess.reply(ctx, errEmptyMessage)
		return
	}

	switch cmd.Kind {
	case command.KindChat:
		sess.chat(ctx, cmd.Text)
	case command.KindAdmin:
		// login is the only admin command a connection may send.
		sess.login(ctx, cmd.Arg(0))
	default:
		sess.srv.log.Warn().
			Err(cmd.Reason).
			Str("conn_id", sess.conn.ID).
			Str("line", line).
			Msg("invalid command")
		sess.reply(ctx, errInvalidCommand)
	}
}

func (sess *session) login(ctx context.Context, id string) {
	err := sess.srv.registry.Login(sess.conn, id)
	if err == nil {
		sess.state = StateAuthenticated
		sess.srv.log.Info().Str("conn_id", sess.conn.ID).Str("login_id", id).Msg("client logged in")
		sess.srv.record(ctx, sess.conn, store.EventAuthenticated, "")
		return
	}

	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		sess.reject(ctx, coreErr)
		return
	}
	// Not registered any more: the connection is already on its way out.
	sess.srv.log.Debug().Err(err).Str("conn_id", sess.conn.ID).Msg("login on closing connection")
	sess.close()
}

func (sess *session) chat(ctx context.Context, text string) {
	if !sess.limiter.allow() {
		sess.reply(ctx, errRateLimited)
		return
	}
	from, _ := sess.conn.LoginID()
	sess.srv.display.Display(fmt.Sprintf("Message received: %s from %s", text, from))
	sess.srv.registry.Broadcast(ctx, fmt.Sprintf("%s > %s", from, text))
}

// reply sends a protocol error to this connection only.
func (sess *session) reply(ctx context.Context, cerr *core.CoreError) {
	if err := sess.conn.Send(ctx, cerr.Message); err != nil {
		sess.srv.log.Warn().Err(err).Str("conn_id", sess.conn.ID).Str("code", cerr.Code).Msg("reply failed")
	}
}

// reject replies with the error and closes the connection.
func (sess *session) reject(ctx context.Context, cerr *core.CoreError) {
	sess.srv.log.Warn().Str("conn_id", sess.conn.ID).Str("code", cerr.Code).Msg("rejecting client")
	sess.reply(ctx, cerr)
	sess.srv.record(ctx, sess.conn, store.EventRejected, cerr.Message)
	sess.close()
}

func (sess *session) close() {
	if err := sess.conn.Close(); err != nil {
		sess.srv.log.Debug().Err(err).Str("conn_id", sess.conn.ID).Msg("close connection")
	}
	sess.state = StateClosed
}

// disconnect unregisters conn and reports how it ended. Only the session
// worker calls it, so each connection is unregistered once.
func (s *Server) disconnect(ctx context.Context, conn *core.Connection, cause error) {
	s.registry.Unregister(conn)
	if err := conn.Close(); err != nil {
		s.log.Debug().Err(err).Str("conn_id", conn.ID).Msg("close connection")
	}

	if cause != nil {
		s.log.Warn().Err(cause).Str("conn_id", conn.ID).Msg("client disconnected with error")
		s.display.Display(fmt.Sprintf("A client: %s has disconnected from the server due to an error: %v", conn, cause))
		s.record(ctx, conn, store.EventFailed, cause.Error())
		return
	}
	s.log.Info().Str("conn_id", conn.ID).Msg("client disconnected")
	s.display.Display(fmt.Sprintf("A client: %s has disconnected from the server.", conn))
	s.record(ctx, conn, store.EventDisconnected, "")
}
