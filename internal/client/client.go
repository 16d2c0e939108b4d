// Package client implements the chat client session: it logs in on connect,
// relays console lines to the server and prints whatever the server sends.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/command"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/transport/tcp"
)

var (
	ErrNoLoginID        = errors.New("no login id specified")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrInvalidPort      = errors.New("invalid port")
	ErrInvalidHost      = errors.New("invalid host")
)

// Dialer opens a transport to host:port.
type Dialer func(ctx context.Context, host string, port int) (core.Transport, error)

// DialTCP is the default Dialer.
func DialTCP(ctx context.Context, host string, port int) (core.Transport, error) {
	return tcp.Dial(ctx, host, port)
}

// Options configures a Client.
type Options struct {
	LoginID string
	Host    string
	Port    int
	// Dial defaults to DialTCP.
	Dial Dialer
}

// Client is a single-connection chat session.
type Client struct {
	loginID string
	dial    Dialer
	display core.Display
	log     *zerolog.Logger

	mu   sync.Mutex
	host string
	port int
	conn *core.Connection

	readers  sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
}

// New validates the login id, connects and sends the login command.
// With an empty login id nothing is dialed and ErrNoLoginID is returned.
func New(ctx context.Context, opts Options, display core.Display, logger *zerolog.Logger) (*Client, error) {
	if display == nil {
		display = core.Discard
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.LoginID == "" {
		display.Display("ERROR - No login ID specified.  Connection aborted.")
		return nil, ErrNoLoginID
	}
	if opts.Dial == nil {
		opts.Dial = DialTCP
	}

	c := &Client{
		loginID: opts.LoginID,
		dial:    opts.Dial,
		display: display,
		log:     logger,
		host:    opts.Host,
		port:    opts.Port,
		quit:    make(chan struct{}),
	}
	if err := c.OpenConnection(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// LoginID returns the identity sent on every connect.
func (c *Client) LoginID() string {
	return c.loginID
}

// Host returns the server host.
func (c *Client) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

// Port returns the server port.
func (c *Client) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SetHost changes the server host. Only allowed while disconnected.
func (c *Client) SetHost(host string) error {
	if host == "" {
		return ErrInvalidHost
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}
	c.host = host
	return nil
}

// SetPort changes the server port. Only allowed while disconnected.
func (c *Client) SetPort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}
	c.port = port
	return nil
}

// OpenConnection dials the server and sends the login command before any
// other line can be written.
func (c *Client) OpenConnection(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	t, err := c.dial(ctx, c.host, c.port)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	conn := core.NewConnection(t)
	if err := conn.Send(ctx, command.Format(command.Login, c.loginID)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send login: %w", err)
	}
	c.conn = conn

	c.log.Info().Str("host", c.host).Int("port", c.port).Str("login_id", c.loginID).Msg("connected")

	c.readers.Add(1)
	go c.readLoop(conn)
	return nil
}

// CloseConnection closes the current connection without quitting.
func (c *Client) CloseConnection() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.Close()
}

// Quit closes the connection and raises the quit signal.
func (c *Client) Quit() {
	if err := c.CloseConnection(); err != nil && !errors.Is(err, ErrNotConnected) {
		c.log.Warn().Err(err).Msg("close connection")
	}
	c.readers.Wait()
	c.quitOnce.Do(func() { close(c.quit) })
}

// Done is closed after Quit.
func (c *Client) Done() <-chan struct{} {
	return c.quit
}

func (c *Client) readLoop(conn *core.Connection) {
	defer c.readers.Done()
	for {
		line, err := conn.Receive(context.Background())
		if err != nil {
			closedLocally := conn.Closed()
			c.detach(conn)
			_ = conn.Close()

			if closedLocally || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.log.Info().Msg("connection closed")
				c.display.Display("Connection with the server has closed.")
				return
			}
			c.log.Warn().Err(err).Msg("connection failed")
			c.display.Display(fmt.Sprintf("Connection with the server has closed due to the following error: %v", err))
			return
		}
		c.display.Display(line)
	}
}

// detach forgets conn if it is still the current connection.
func (c *Client) detach(conn *core.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}

// HandleLine executes one line typed on the client console.
func (c *Client) HandleLine(ctx context.Context, line string) {
	cmd, err := command.Parse(line, command.Client)
	if err != nil {
		c.display.Display("Error, empty command")
		return
	}

	switch cmd.Kind {
	case command.KindChat:
		c.send(ctx, cmd.Text)
		return
	case command.KindInvalid:
		c.log.Debug().Err(cmd.Reason).Str("line", line).Msg("invalid command")
		c.display.Display("Invalid command")
		return
	}

	switch cmd.Name {
	case command.Quit:
		c.Quit()
	case command.Logoff:
		if err := c.CloseConnection(); err != nil {
			if errors.Is(err, ErrNotConnected) {
				c.display.Display("Error, not connected")
				return
			}
			c.display.Display(fmt.Sprintf("Error, couldn't logout: %v", err))
		}
	case command.Login:
		if err := c.OpenConnection(ctx); err != nil {
			if errors.Is(err, ErrAlreadyConnected) {
				c.display.Display("Error, already connected")
				return
			}
			c.log.Warn().Err(err).Msg("reconnect failed")
			c.display.Display(fmt.Sprintf("Error, could not connect: %v", err))
		}
	case command.GetHost:
		c.display.Display(c.Host())
	case command.GetPort:
		c.display.Display(strconv.Itoa(c.Port()))
	case command.SetHost:
		c.setHost(cmd.Arg(0))
	case command.SetPort:
		c.setPort(cmd.Arg(0))
	}
}

func (c *Client) setHost(host string) {
	if err := c.SetHost(host); err != nil {
		if errors.Is(err, ErrAlreadyConnected) {
			c.display.Display("Error, already connected")
			return
		}
		c.display.Display("Error, invalid host " + host)
		return
	}
	c.display.Display("Host set to " + host)
}

func (c *Client) setPort(arg string) {
	port, err := strconv.Atoi(arg)
	if err == nil {
		err = c.SetPort(port)
	} else {
		err = ErrInvalidPort
	}
	if err != nil {
		if errors.Is(err, ErrAlreadyConnected) {
			c.display.Display("Error, already connected")
			return
		}
		c.display.Display("Error, invalid port " + arg)
		return
	}
	c.display.Display("Port set to " + arg)
}

func (c *Client) send(ctx context.Context, text string) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.display.Display("Error, not connected")
		return
	}
	if err := conn.Send(ctx, text); err != nil {
		c.log.Error().Err(err).Msg("send failed")
		c.display.Display("Could not send message to server.  Terminating client.")
		c.Quit()
	}
}
