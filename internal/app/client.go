package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/client"
	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/console"
	"github.com/vovakirdan/linechat/internal/core"
)

// RunClient connects as loginID and relays lines from in until the user
// quits, in ends or ctx is cancelled.
func RunClient(ctx context.Context, cfg *config.Config, loginID string, in io.Reader, display core.Display, logger *zerolog.Logger) error {
	c, err := client.New(ctx, client.Options{
		LoginID: loginID,
		Host:    cfg.Host,
		Port:    cfg.Port,
	}, display, logger)
	if err != nil {
		if !errors.Is(err, client.ErrNoLoginID) {
			logger.Error().Err(err).Msg("connect failed")
			display.Display(fmt.Sprintf("Error, could not connect: %v", err))
		}
		return err
	}
	defer c.Quit()

	consoleCtx, stopConsole := context.WithCancel(ctx)
	defer stopConsole()

	consoleDone := make(chan error, 1)
	go func() {
		consoleDone <- console.ReadLines(consoleCtx, in, func(line string) {
			c.HandleLine(consoleCtx, line)
		})
	}()

	select {
	case <-c.Done():
		return nil
	case <-ctx.Done():
		return nil
	case err := <-consoleDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("console closed")
		}
		return nil
	}
}
