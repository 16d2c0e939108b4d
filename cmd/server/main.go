package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/linechat/internal/app"
	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/console"
	"github.com/vovakirdan/linechat/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		logLevel    string
		httpAddr    string
		journalPath string
	)

	cmd := &cobra.Command{
		Use:           "linechat-server [port]",
		Short:         "Run the line chat server",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Load(nil, configPath)
			if err != nil {
				return err
			}

			cfg.UpdateFrom(config.Config{
				LogLevel:    logLevel,
				HTTPAddr:    httpAddr,
				JournalPath: journalPath,
			})
			if len(args) == 1 {
				cfg.Port = config.ParsePort(args[0], config.DefaultPort)
			}

			logger := log.New(cfg.LogLevel, nil)
			logger.Info().Str("config", path).Int("port", cfg.Port).Msg("starting linechat server")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, console.NewWriter(os.Stdout), logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to initialize application")
				return err
			}

			if err := application.Run(ctx, os.Stdin); err != nil {
				if !errors.Is(err, app.ErrListen) {
					logger.Error().Err(err).Msg("server exited with error")
				}
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "enable the HTTP/WebSocket gateway on this address")
	cmd.Flags().StringVar(&journalPath, "journal", "", "enable the sqlite session journal at this path")
	return cmd
}
