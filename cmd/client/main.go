package main

import (
	"context"
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
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "linechat-client <loginID> [host] [port]",
		Short:         "Connect to a line chat server",
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(nil, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(config.Config{LogLevel: logLevel})

			var loginID string
			if len(args) > 0 {
				loginID = args[0]
			}
			if len(args) > 1 {
				cfg.Host = args[1]
			}
			if len(args) > 2 {
				cfg.Port = config.ParsePort(args[2], config.DefaultPort)
			}

			logger := log.New(cfg.LogLevel, nil)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.RunClient(ctx, &cfg, loginID, os.Stdin, console.NewWriter(os.Stdout), logger)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	return cmd
}
