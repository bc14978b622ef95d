package billing_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/pg"
)

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("PG_TEST_URL")
	if url == "" {
		t.Skip("PG_TEST_URL not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     4,
		MaxIdleConns:     1,
		RetryAttempts:    1,
		RetryInterval:    time.Second,
		MigrationsTable:  "billing_schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, pg.Migrate(ctx, pool, cfg, billing.Migrations(), log))

	runStoreContract(t, func(t *testing.T) billing.Store {
		_, err := pool.Exec(ctx, "TRUNCATE subscription_records")
		require.NoError(t, err)
		return billing.NewPostgresStore(pool)
	})
}
