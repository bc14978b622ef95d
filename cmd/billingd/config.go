package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agentcoach/billing/modules/subscriptions"
	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/config"
	"github.com/agentcoach/billing/pkg/httpserver"
	"github.com/agentcoach/billing/pkg/identity"
	"github.com/agentcoach/billing/pkg/logger"
	"github.com/agentcoach/billing/pkg/metrics"
	"github.com/agentcoach/billing/pkg/mongo"
	"github.com/agentcoach/billing/pkg/pg"
	"github.com/agentcoach/billing/pkg/redis"
)

const (
	driverMongo    = "mongo"
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

var storeDrivers = []string{driverMongo, driverPostgres, driverMemory}

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"billingd"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"` // mongo, postgres or memory

	Billing  billing.Config
	Stripe   billing.StripeConfig
	Log      logger.Config
	HTTP     httpserver.Config
	API      subscriptions.Config
	Identity identity.Config
	Metrics  metrics.Config
	Mongo    mongo.Config
	Postgres pg.Config
	Redis    redis.Config
}

// envFileOption falls back to $ENV_FILE or .env when no --env-file is given.
func envFileOption(files []string) config.Option {
	if len(files) == 0 {
		files = config.EnvFiles()
	}
	return config.WithEnvFiles(files...)
}

func loadConfig(opts ...config.Option) (appConfig, error) {
	var cfg appConfig
	if err := config.Load(&cfg, opts...); err != nil {
		return appConfig{}, err
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if !slices.Contains(storeDrivers, cfg.StoreDriver) {
		return appConfig{}, fmt.Errorf("unknown STORE_DRIVER %q: must be one of %s", cfg.StoreDriver, strings.Join(storeDrivers, ", "))
	}
	if len(cfg.API.AllowedOrigins) == 0 && cfg.Billing.FrontendURL != "" {
		cfg.API.AllowedOrigins = []string{strings.TrimRight(cfg.Billing.FrontendURL, "/")}
	}
	return cfg, nil
}
