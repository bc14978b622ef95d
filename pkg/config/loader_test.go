package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcoach/billing/pkg/config"
)

type stripeSection struct {
	SecretKey string        `env:"CFGTEST_STRIPE_SECRET_KEY,required"`
	Timeout   time.Duration `env:"CFGTEST_STRIPE_TIMEOUT" envDefault:"10s"`
}

type serverSection struct {
	Addr    string   `env:"CFGTEST_HTTP_ADDR" envDefault:":8080"`
	Origins []string `env:"CFGTEST_CORS_ORIGINS" envSeparator:","`
}

type appConfig struct {
	Stripe stripeSection
	Server serverSection
	Debug  bool `env:"CFGTEST_DEBUG"`
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Parallel()

	var cfg appConfig
	err := config.Load(&cfg, config.WithEnvironment(map[string]string{
		"CFGTEST_STRIPE_SECRET_KEY": "sk_test_123",
		"CFGTEST_CORS_ORIGINS":      "https://a.example.com,https://b.example.com",
		"CFGTEST_DEBUG":             "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
	assert.Equal(t, 10*time.Second, cfg.Stripe.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.Origins)
	assert.True(t, cfg.Debug)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()
		var cfg *appConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()
		var cfg appConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Parallel()
		var cfg appConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{
			"CFGTEST_STRIPE_SECRET_KEY": "sk",
			"CFGTEST_STRIPE_TIMEOUT":    "soon",
		}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("must load panics", func(t *testing.T) {
		t.Parallel()
		var cfg appConfig
		assert.Panics(t, func() {
			config.MustLoad(&cfg, config.WithEnvironment(map[string]string{}))
		})
	})
}

// Tests below touch the process environment and cannot run in parallel.

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_STRIPE_SECRET_KEY=sk_from_file\nCFGTEST_HTTP_ADDR=:9090\n"), 0o600))

	t.Setenv("CFGTEST_HTTP_ADDR", ":7070")
	t.Cleanup(func() { _ = os.Unsetenv("CFGTEST_STRIPE_SECRET_KEY") })

	var cfg appConfig
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(filepath.Join(dir, "missing.env"), path)))

	assert.Equal(t, "sk_from_file", cfg.Stripe.SecretKey)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestEnvFiles(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	assert.Equal(t, []string{".env"}, config.EnvFiles())

	t.Setenv("ENV_FILE", "/etc/billing/env")
	assert.Equal(t, []string{"/etc/billing/env"}, config.EnvFiles())
}
