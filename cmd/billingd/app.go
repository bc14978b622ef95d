package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agentcoach/billing/modules/subscriptions"
	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/httpserver"
	"github.com/agentcoach/billing/pkg/identity"
	"github.com/agentcoach/billing/pkg/logger"
	"github.com/agentcoach/billing/pkg/metrics"
	"github.com/agentcoach/billing/pkg/mongo"
	"github.com/agentcoach/billing/pkg/pg"
	"github.com/agentcoach/billing/pkg/redis"
	"github.com/agentcoach/billing/pkg/requestid"
	"github.com/agentcoach/billing/pkg/webhook"
)

// identityPushWarnBudget is the identity push duration above which startup
// warns. Pushes run before a webhook delivery is acknowledged.
const identityPushWarnBudget = 10 * time.Second

// app holds the wired service and the resources to release on exit.
type app struct {
	handler http.Handler
	closers []func(context.Context) error
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func newLogger(cfg appConfig) *slog.Logger {
	return logger.New(
		logger.FromConfig(cfg.Log, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LogExtractor()),
	)
}

func loadCatalog(cfg appConfig) (*billing.Catalog, error) {
	catalog := billing.DefaultCatalog()
	if cfg.Billing.CatalogFile != "" {
		var err error
		if catalog, err = billing.LoadCatalogFile(cfg.Billing.CatalogFile); err != nil {
			return nil, err
		}
	}
	return catalog.WithCurrency(cfg.Stripe.Currency), nil
}

// openStore connects the configured record store. Postgres migrations are
// applied before the store is used.
func openStore(ctx context.Context, cfg appConfig, log *slog.Logger, a *app) (billing.Store, httpserver.Check, error) {
	switch cfg.StoreDriver {
	case driverMongo:
		db, err := mongo.NewWithDatabase(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Client().Disconnect)
		store, err := billing.NewMongoStore(ctx, db)
		if err != nil {
			return nil, nil, err
		}
		return store, mongo.Healthcheck(db.Client()), nil

	case driverPostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		if err := pg.Migrate(ctx, pool, cfg.Postgres, billing.Migrations(), log); err != nil {
			return nil, nil, err
		}
		return billing.NewPostgresStore(pool), pg.Healthcheck(pool), nil

	default:
		log.WarnContext(ctx, "using in-memory record store, records are lost on restart")
		store := billing.NewMemoryStore()
		return store, store.Ping, nil
	}
}

// openDeduper shares event claims through Redis when REDIS_URL is set.
func openDeduper(ctx context.Context, cfg appConfig, log *slog.Logger, a *app) (billing.EventDeduper, httpserver.Check, error) {
	if cfg.Redis.ConnectionURL == "" {
		log.InfoContext(ctx, "REDIS_URL not set, webhook events are deduplicated per process")
		return billing.NewMemoryDeduper(cfg.Redis.ClaimTTL), nil, nil
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	claims := redis.NewClaims(client,
		redis.WithClaimPrefix(cfg.Redis.ClaimPrefix),
		redis.WithClaimTTL(cfg.Redis.ClaimTTL),
	)
	return claims, redis.Healthcheck(client), nil
}

// buildApp wires every component from cfg. On error the resources opened so
// far are already released.
func buildApp(ctx context.Context, cfg appConfig, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.close(context.WithoutCancel(ctx)))
		}
	}()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("load plan catalog: %w", err)
	}

	processor, err := billing.NewStripeProcessor(cfg.Stripe)
	if err != nil {
		return nil, err
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.WarnContext(ctx, "STRIPE_WEBHOOK_SECRET not set, every webhook delivery will be rejected")
	}

	store, storeCheck, err := openStore(ctx, cfg, log, a)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}

	deduper, redisCheck, err := openDeduper(ctx, cfg, log, a)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	collector := metrics.New(cfg.Metrics)

	identityClient, err := identity.NewClient(cfg.Identity, cfg.Billing.FrontendURL,
		identity.WithLogger(log),
		identity.WithSenderOptions(webhook.WithOnAttempt(collector.ObserveIdentityAttempt)),
	)
	if err != nil {
		return nil, err
	}
	if budget := cfg.Identity.PushBudget(); budget > identityPushWarnBudget {
		log.WarnContext(ctx, "identity sync retries can outlast the webhook delivery timeout",
			slog.Duration("push_budget", budget),
			slog.Duration("limit", identityPushWarnBudget),
		)
	}

	reconciler := billing.NewReconciler(
		billing.NewStripeVerifier(cfg.Stripe.WebhookSecret),
		processor, store, identityClient,
		billing.WithLogger(log),
		billing.WithObserver(collector),
		billing.WithDeduper(deduper),
		billing.WithLookupPolicy(cfg.Stripe.Timeout, cfg.Stripe.RetryAttempts, cfg.Stripe.RetryBackoff),
	)
	svc := billing.NewService(cfg.Billing, catalog, processor, store, reconciler)

	readiness := map[string]httpserver.Check{"store": storeCheck}
	if redisCheck != nil {
		readiness["redis"] = redisCheck
	}

	a.handler = subscriptions.Router(subscriptions.RouterOptions{
		API:            subscriptions.NewHandlers(svc, cfg.API, log),
		Logger:         log,
		Metrics:        collector,
		Readiness:      readiness,
		HealthTimeout:  cfg.HTTP.HealthTimeout,
		AllowedOrigins: cfg.API.AllowedOrigins,
	})

	log.InfoContext(ctx, "billing service wired",
		slog.String("store", cfg.StoreDriver),
		slog.String("identity_endpoint", identityClient.Endpoint()),
		slog.Int("plans", len(catalog.Plans())),
	)
	return a, nil
}
