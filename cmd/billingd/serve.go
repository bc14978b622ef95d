package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/agentcoach/billing/pkg/httpserver"
	"github.com/agentcoach/billing/pkg/logger"
)

func newServeCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFileOption(*envFiles))
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			logger.SetAsDefault(log)

			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.WithoutCancel(ctx)); err != nil {
			log.ErrorContext(ctx, "failed to release resources", logger.Error(err))
		}
	}()

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, a.handler)
}
