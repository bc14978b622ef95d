package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/config"
)

func testEnv(extra map[string]string) map[string]string {
	env := map[string]string{
		"STORE_DRIVER":          "memory",
		"STRIPE_SECRET_KEY":     "sk_test_billingd",
		"STRIPE_WEBHOOK_SECRET": "whsec_billingd",
		"FRONTEND_URL":          "https://app.example.com/",
		"METRICS_RUNTIME":       "false",
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := loadConfig(config.WithEnvironment(map[string]string{}))
		require.NoError(t, err)

		assert.Equal(t, driverMongo, cfg.StoreDriver)
		assert.Equal(t, "http://localhost:3000", cfg.Billing.FrontendURL)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.AllowedOrigins)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		assert.Equal(t, 72*time.Hour, cfg.Redis.ClaimTTL)
		assert.Equal(t, "billing", cfg.Metrics.Namespace)
		assert.Equal(t, 10*time.Second, cfg.Stripe.Timeout)
	})

	t.Run("explicit origins win", func(t *testing.T) {
		t.Parallel()
		cfg, err := loadConfig(config.WithEnvironment(testEnv(map[string]string{
			"CORS_ALLOWED_ORIGINS": "https://a.example.com,https://b.example.com",
			"STORE_DRIVER":         " Postgres ",
		})))
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.API.AllowedOrigins)
		assert.Equal(t, driverPostgres, cfg.StoreDriver)
	})

	t.Run("origin derived from frontend url", func(t *testing.T) {
		t.Parallel()
		cfg, err := loadConfig(config.WithEnvironment(testEnv(nil)))
		require.NoError(t, err)
		assert.Equal(t, []string{"https://app.example.com"}, cfg.API.AllowedOrigins)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		_, err := loadConfig(config.WithEnvironment(testEnv(map[string]string{"STORE_DRIVER": "sqlite"})))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sqlite")
	})
}

func TestPrintPlans(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printPlans(&buf, billing.DefaultCatalog()))

	out := buf.String()
	assert.Contains(t, out, "PLAN")
	assert.Contains(t, out, "individual")
	assert.Contains(t, out, "team")
	assert.Contains(t, out, "organization")
	assert.Contains(t, out, "29.99")
	assert.Contains(t, out, "USD")
}

func TestBuildApp(t *testing.T) {
	t.Parallel()

	// Subtests run sequentially: the Stripe processor sets the package-level API key.
	log := slog.New(slog.DiscardHandler)

	t.Run("memory store", func(t *testing.T) {
		cfg, err := loadConfig(config.WithEnvironment(testEnv(nil)))
		require.NoError(t, err)

		a, err := buildApp(context.Background(), cfg, log)
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, a.close(context.Background())) })

		for _, path := range []string{"/healthz", "/readyz", "/metrics", "/payments"} {
			rec := httptest.NewRecorder()
			a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})

	t.Run("redis claims", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg, err := loadConfig(config.WithEnvironment(testEnv(map[string]string{
			"REDIS_URL": "redis://" + mr.Addr(),
		})))
		require.NoError(t, err)

		a, err := buildApp(context.Background(), cfg, log)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "redis")

		require.NoError(t, a.close(context.Background()))
	})

	t.Run("missing stripe key", func(t *testing.T) {
		cfg, err := loadConfig(config.WithEnvironment(testEnv(map[string]string{"STRIPE_SECRET_KEY": ""})))
		require.NoError(t, err)

		_, err = buildApp(context.Background(), cfg, log)
		require.Error(t, err)
	})

	t.Run("bad catalog file", func(t *testing.T) {
		cfg, err := loadConfig(config.WithEnvironment(testEnv(map[string]string{"CATALOG_FILE": "does-not-exist.yaml"})))
		require.NoError(t, err)

		_, err = buildApp(context.Background(), cfg, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "plan catalog")
	})
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "plans"})
}
