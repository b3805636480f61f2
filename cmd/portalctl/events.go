package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ruet-portal/portal-backend/internal/bootstrap"
	"github.com/ruet-portal/portal-backend/internal/config"
	"github.com/ruet-portal/portal-backend/internal/logging"
	"github.com/ruet-portal/portal-backend/internal/queue"
)

func newEventsCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with the library event queue",
	}

	var logPath string
	consume := &cobra.Command{
		Use:   "consume",
		Short: "Append library events to a log file until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// only the broker is needed here, not the database
			bootstrap.LoadEnv()
			cfg := config.Load()
			if cfg.AMQPURL == "" {
				return errors.New("RABBITMQ_URL (or AMQP_URL) is not set")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := &queue.Consumer{
				URL:     cfg.AMQPURL,
				LogPath: logPath,
				Log:     logging.New(cfg.LogLevel, "text"),
			}
			err := c.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	consume.Flags().StringVar(&logPath, "log", "logs/library.log", "file to append events to")

	cmd.AddCommand(consume)
	return cmd
}
