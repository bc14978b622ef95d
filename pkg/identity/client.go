package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/logger"
	"github.com/agentcoach/billing/pkg/webhook"
)

// ErrNoEndpoint is returned by NewClient when neither IDENTITY_SYNC_URL nor a frontend URL is known.
var ErrNoEndpoint = errors.New("identity: sync endpoint is not configured")

// update is the body the identity bridge expects.
type update struct {
	PaymentInfo billing.Record `json:"paymentInfo"`
}

// Client pushes subscription records to the identity bridge of the web app,
// which mirrors the tier into the user's profile.
type Client struct {
	endpoint string
	sender   *webhook.Sender
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	log         *slog.Logger
	senderOpts  []webhook.Option
	withBreaker bool
}

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSenderOptions appends options to the underlying webhook sender.
func WithSenderOptions(opts ...webhook.Option) Option {
	return func(o *clientOptions) {
		o.senderOpts = append(o.senderOpts, opts...)
	}
}

// WithoutCircuitBreaker disables the circuit breaker.
func WithoutCircuitBreaker() Option {
	return func(o *clientOptions) {
		o.withBreaker = false
	}
}

// NewClient builds a Client from cfg. frontendURL is used to derive the
// endpoint when cfg.URL is empty.
func NewClient(cfg Config, frontendURL string, opts ...Option) (*Client, error) {
	endpoint := cfg.Endpoint(frontendURL)
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	o := &clientOptions{log: slog.Default(), withBreaker: true}
	for _, opt := range opts {
		opt(o)
	}

	senderOpts := []webhook.Option{
		webhook.WithTimeout(cfg.Timeout),
		webhook.WithRetries(cfg.Retries, cfg.RetryBackoff),
		webhook.WithUserAgent("billing-identity-sync/1.0"),
	}
	if cfg.Secret != "" {
		senderOpts = append(senderOpts, webhook.WithSigningSecret(cfg.Secret))
	}
	if o.withBreaker {
		senderOpts = append(senderOpts, webhook.WithCircuitBreaker(
			webhook.NewCircuitBreaker(cfg.BreakerFailures, 1, cfg.BreakerCooldown),
		))
	}
	senderOpts = append(senderOpts, o.senderOpts...)

	return &Client{
		endpoint: endpoint,
		sender:   webhook.NewSender(senderOpts...),
		log:      o.log.With(logger.Component("identity")),
	}, nil
}

// Endpoint returns the URL records are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Push posts rec as {"paymentInfo": rec}.
func (c *Client) Push(ctx context.Context, rec billing.Record) error {
	if err := c.sender.Send(ctx, c.endpoint, update{PaymentInfo: rec}); err != nil {
		return err
	}
	c.log.DebugContext(ctx, "identity updated",
		logger.SubscriptionID(rec.SubscriptionID),
		logger.Tier(rec.Tier),
	)
	return nil
}

var _ billing.IdentitySync = (*Client)(nil)
