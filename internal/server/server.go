// Package server implements the chat server: listener lifecycle, one session
// state machine per connection and the operator console commands.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store"
	"github.com/vovakirdan/linechat/internal/transport/tcp"
)

// DefaultPort is used when no valid port is configured.
const DefaultPort = 5555

var (
	ErrAlreadyListening = errors.New("already listening")
	ErrNotListening     = errors.New("not listening")
	ErrAlreadyConnected = errors.New("already connected")
	ErrInvalidPort      = errors.New("invalid port")
)

// Options configures a Server.
type Options struct {
	// ListenHost is the bind address; empty means all interfaces.
	ListenHost string
	Port       int
	// MessagesPerMinute limits chat lines per connection; 0 disables the limit.
	MessagesPerMinute int
	// MaxLineBytes bounds one inbound TCP line; 0 uses the transport default.
	MaxLineBytes int
	// Journal is optional.
	Journal store.Journal
}

// Server owns the session registry and the listening endpoint.
type Server struct {
	host      string
	rateLimit int
	maxLine   int
	registry  *core.Registry
	journal   store.Journal
	display   core.Display
	log       *zerolog.Logger

	mu         sync.Mutex
	port       int
	listener   net.Listener
	acceptDone chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup

	quit     chan struct{}
	quitOnce sync.Once
}

// New constructs a server. Nothing is bound until Listen.
func New(opts Options, display core.Display, logger *zerolog.Logger) *Server {
	if display == nil {
		display = core.Discard
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		host:      opts.ListenHost,
		rateLimit: opts.MessagesPerMinute,
		maxLine:   opts.MaxLineBytes,
		registry:  core.NewRegistry(display, logger),
		journal:   opts.Journal,
		display:   display,
		log:       logger,
		port:      opts.Port,
		ctx:       ctx,
		cancel:    cancel,
		quit:      make(chan struct{}),
	}
}

// Registry exposes the live session set.
func (s *Server) Registry() *core.Registry {
	return s.registry
}

// Port returns the configured port, or the bound one while listening.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Listening reports whether new connections are being accepted.
func (s *Server) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Listen binds the configured port and starts accepting connections.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return ErrAlreadyListening
	}
	return s.listenLocked()
}

func (s *Server) listenLocked() error {
	ln, err := tcp.Listen(s.host, s.port)
	if err != nil {
		return err
	}
	s.listener = ln
	s.port = tcp.Port(ln)
	s.acceptDone = make(chan struct{})

	go s.acceptLoop(ln, s.acceptDone)

	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	s.display.Display(fmt.Sprintf("Server listening for connections on port %d", s.port))
	return nil
}

func (s *Server) acceptLoop(ln net.Listener, done chan<- struct{}) {
	defer close(done)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error().Err(err).Msg("accept failed")
				s.display.Display(fmt.Sprintf("Error, stopped accepting connections: %v", err))
			}
			return
		}
		// Registered before the next Accept, so a stopped listener leaves
		// no accepted connection outside the registry.
		c := s.admit(tcp.NewConn(conn, s.maxLine))
		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			_ = s.serve(s.ctx, c)
		}()
	}
}

// StopListening closes the listening endpoint and leaves sessions open.
func (s *Server) StopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ErrNotListening
	}
	s.stopLocked()
	s.display.Display("Server has stopped listening for connections.")
	return nil
}

func (s *Server) stopLocked() {
	if err := s.listener.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close listener")
	}
	<-s.acceptDone
	s.listener = nil
	s.acceptDone = nil
}

// SetPort changes the listening port. It is refused while any connection is
// open. An active listener is re-bound, and restored on failure.
func (s *Server) SetPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	if s.registry.Len() > 0 {
		return ErrAlreadyConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.port
	s.port = port
	if s.listener == nil {
		return nil
	}

	s.stopLocked()
	if s.registry.Len() > 0 {
		s.port = old
		if err := s.listenLocked(); err != nil {
			s.log.Error().Err(err).Int("port", old).Msg("restore listener")
		}
		return ErrAlreadyConnected
	}
	if err := s.listenLocked(); err != nil {
		s.port = old
		if restoreErr := s.listenLocked(); restoreErr != nil {
			s.log.Error().Err(restoreErr).Int("port", old).Msg("restore listener")
		}
		return err
	}
	return nil
}

// Close stops listening and closes every open connection.
func (s *Server) Close() {
	s.mu.Lock()
	if s.listener != nil {
		s.stopLocked()
		s.display.Display("Server has stopped listening for connections.")
	}
	s.mu.Unlock()

	if n := s.registry.CloseAll(); n > 0 {
		s.log.Info().Int("connections", n).Msg("closed all connections")
	}
}

// Quit closes everything and raises the quit signal.
func (s *Server) Quit() {
	s.Close()
	s.quitOnce.Do(func() { close(s.quit) })
}

// Done is closed after Quit.
func (s *Server) Done() <-chan struct{} {
	return s.quit
}

// Shutdown closes the server and waits for session workers until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) record(ctx context.Context, conn *core.Connection, kind store.EventKind, detail string) {
	if s.journal == nil {
		return
	}
	login, _ := conn.LoginID()
	ev := &store.SessionEvent{
		ConnID:  conn.ID,
		LoginID: login,
		Remote:  conn.RemoteAddr(),
		Kind:    kind,
		Detail:  detail,
	}
	if err := s.journal.RecordSession(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn().Err(err).Str("conn_id", conn.ID).Str("kind", string(kind)).Msg("journal write failed")
	}
}
