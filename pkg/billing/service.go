package billing

import (
	"context"
	"time"
)

// Config holds the settings shared by the user-facing operations.
type Config struct {
	FrontendURL  string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	ProductBrand string `env:"PRODUCT_BRAND" envDefault:"AgentCoach.AI"`
	CatalogFile  string `env:"CATALOG_FILE"`
}

// Service is the billing API exposed over HTTP.
type Service interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, email string) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (time.Time, error)

	ListRecords(ctx context.Context) ([]Record, error)
	ListRecordsByEmail(ctx context.Context, email string) ([]Record, error)

	HandleWebhook(ctx context.Context, payload []byte, signature string) (Result, error)
}

type service struct {
	checkout   *CheckoutInitiator
	canceller  *Canceller
	portal     *PortalService
	reconciler *Reconciler
	store      Store
}

// NewService wires the operations around one processor and store.
// Panics if a required dependency is nil.
func NewService(cfg Config, catalog *Catalog, processor Processor, store Store, reconciler *Reconciler) Service {
	if reconciler == nil {
		panic("billing: Reconciler is required")
	}
	return &service{
		checkout:   NewCheckoutInitiator(catalog, processor, cfg.FrontendURL, cfg.ProductBrand),
		canceller:  NewCanceller(processor),
		portal:     NewPortalService(processor, store, cfg.FrontendURL),
		reconciler: reconciler,
		store:      store,
	}
}

func (s *service) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	return s.checkout.Create(ctx, in)
}

func (s *service) CreatePortalSession(ctx context.Context, email string) (string, error) {
	return s.portal.Create(ctx, email)
}

func (s *service) CancelSubscription(ctx context.Context, subscriptionID string) (time.Time, error) {
	return s.canceller.Cancel(ctx, subscriptionID)
}

func (s *service) ListRecords(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx)
}

// ListRecordsByEmail returns an empty slice when the email has no record.
func (s *service) ListRecordsByEmail(ctx context.Context, email string) ([]Record, error) {
	if NormalizeEmail(email) == "" {
		return nil, validationError(ErrMissingEmail)
	}
	return s.store.ListByEmail(ctx, email)
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (Result, error) {
	return s.reconciler.Handle(ctx, payload, signature)
}
