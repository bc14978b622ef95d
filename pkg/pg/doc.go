// Package pg connects to PostgreSQL through pgx/v5 and applies goose schema
// migrations. It backs the Postgres flavour of the subscription record store.
//
// Config is populated from environment variables via github.com/caarlos0/env.
// Connect opens a *pgxpool.Pool with exponential backoff, Migrate runs the
// embedded SQL migrations and Healthcheck plugs into readiness probes.
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, billing.Migrations(), log); err != nil {
//		return err
//	}
//
// UniqueViolation and IsNotFoundError classify pgx errors for store code.
package pg
