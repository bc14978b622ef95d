package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/pg"
)

func newMigrateCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFileOption(*envFiles))
			if err != nil {
				return err
			}
			if cfg.StoreDriver != driverPostgres {
				return errors.New("migrate requires STORE_DRIVER=postgres")
			}
			log := newLogger(cfg)
			ctx := cmd.Context()

			pool, err := pg.Connect(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pg.Migrate(ctx, pool, cfg.Postgres, billing.Migrations(), log); err != nil {
				return err
			}
			log.InfoContext(ctx, "migrations applied")
			return nil
		},
	}
}
