// Package app wires configuration, the chat server and its optional
// gateway and journal into runnable programs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/console"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/server"
	"github.com/vovakirdan/linechat/internal/store"
	"github.com/vovakirdan/linechat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/linechat/internal/transport/http"
)

// ErrListen is returned by Run when the chat port cannot be bound at startup.
var ErrListen = errors.New("could not listen for clients")

// App wires together core and transport layers.
type App struct {
	chat            *server.Server
	gateway         *stdhttp.Server
	journal         store.Journal
	display         core.Display
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, display core.Display, logger *zerolog.Logger) (*App, error) {
	var journal store.Journal
	if cfg.JournalPath != "" {
		st, err := sqlite.New(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		logger.Info().Str("db_path", cfg.JournalPath).Msg("journal initialized")
		journal = st
	}

	chat := server.New(server.Options{
		ListenHost:        cfg.ListenHost,
		Port:              cfg.Port,
		MessagesPerMinute: cfg.MessagesPerMinute,
		MaxLineBytes:      int(cfg.MaxMessageBytes),
		Journal:           journal,
	}, display, logger)

	a := &App{
		chat:            chat,
		journal:         journal,
		display:         display,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
	if cfg.HTTPAddr != "" {
		a.gateway = transporthttp.NewServer(chat, journal, cfg, logger)
	}
	return a, nil
}

// Server returns the chat server.
func (a *App) Server() *server.Server {
	return a.chat
}

// Run starts listening, feeds operator lines from in and blocks until the
// operator quits, ctx is cancelled or the gateway fails.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	defer a.cleanup()

	if err := a.chat.Listen(); err != nil {
		a.log.Error().Err(err).Int("port", a.chat.Port()).Msg("listen failed")
		a.display.Display("ERROR - Could not listen for clients!")
		return fmt.Errorf("%w: %v", ErrListen, err)
	}

	gatewayErr := make(chan error, 1)
	if a.gateway != nil {
		go func() {
			a.log.Info().Str("addr", a.gateway.Addr).Msg("http gateway listening")
			if err := a.gateway.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				gatewayErr <- err
			}
		}()
	}

	consoleCtx, stopConsole := context.WithCancel(ctx)
	defer stopConsole()
	if in != nil {
		go func() {
			err := console.ReadLines(consoleCtx, in, func(line string) {
				a.chat.HandleOperatorLine(consoleCtx, line)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn().Err(err).Msg("operator console closed")
			}
		}()
	}

	var runErr error
	select {
	case <-a.chat.Done():
		a.log.Info().Msg("operator quit")
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
	case err := <-gatewayErr:
		a.log.Error().Err(err).Msg("http gateway failed")
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if a.gateway != nil {
		if err := a.gateway.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("http gateway shutdown")
		}
	}
	if err := a.chat.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("chat server shutdown")
	}
	return runErr
}

// cleanup closes the journal.
func (a *App) cleanup() {
	if a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close journal")
	} else {
		a.log.Info().Msg("journal closed")
	}
}
