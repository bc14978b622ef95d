package billing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/product"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds Stripe credentials and call policy.
type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	Timeout       time.Duration `env:"STRIPE_TIMEOUT" envDefault:"10s"`      // per remote lookup
	RetryAttempts int           `env:"STRIPE_RETRY_ATTEMPTS" envDefault:"3"` // retries of transient lookup failures
	RetryBackoff  time.Duration `env:"STRIPE_RETRY_BACKOFF" envDefault:"200ms"`
	Currency      string        `env:"STRIPE_CURRENCY"` // overrides the catalog currency when set
}

// StripeProcessor implements Processor on the Stripe API.
type StripeProcessor struct {
	createCheckoutSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSubscription       func(string, *stripe.SubscriptionParams) (*stripe.Subscription, error)
	updateSubscription    func(string, *stripe.SubscriptionParams) (*stripe.Subscription, error)
	getCustomer           func(string, *stripe.CustomerParams) (*stripe.Customer, error)
	getProduct            func(string, *stripe.ProductParams) (*stripe.Product, error)
	createPortalSession   func(*stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

// NewStripeProcessor sets the process-wide Stripe API key.
func NewStripeProcessor(cfg StripeConfig) (*StripeProcessor, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errors.New("stripe secret key is required")
	}
	stripe.Key = key

	return &StripeProcessor{
		createCheckoutSession: checkoutsession.New,
		getSubscription:       subscription.Get,
		updateSubscription:    subscription.Update,
		getCustomer:           customer.Get,
		getProduct:            product.Get,
		createPortalSession:   portalsession.New,
	}, nil
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.ProductDescription),
					},
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(req.Interval),
					},
					UnitAmount: stripe.Int64(req.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := p.createCheckoutSession(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", classifyStripeError(err))
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProcessor) GetSubscription(ctx context.Context, id string) (*ProcessorSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := p.getSubscription(id, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, classifyStripeError(err))
	}
	return toProcessorSubscription(s), nil
}

func (p *StripeProcessor) CancelAtPeriodEnd(ctx context.Context, id string) (*ProcessorSubscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	s, err := p.updateSubscription(id, params)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription %s: %w", id, classifyStripeError(err))
	}
	return toProcessorSubscription(s), nil
}

func (p *StripeProcessor) GetCustomer(ctx context.Context, id string) (*ProcessorCustomer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := p.getCustomer(id, params)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, classifyStripeError(err))
	}
	return &ProcessorCustomer{ID: c.ID, Email: c.Email}, nil
}

func (p *StripeProcessor) GetProduct(ctx context.Context, id string) (*ProcessorProduct, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx
	pr, err := p.getProduct(id, params)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, classifyStripeError(err))
	}
	return &ProcessorProduct{ID: pr.ID, Name: pr.Name, Description: pr.Description}, nil
}

func (p *StripeProcessor) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := p.createPortalSession(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", classifyStripeError(err))
	}
	return s.URL, nil
}

// toProcessorSubscription reads period end and price from the first item,
// where current API versions report them.
func toProcessorSubscription(s *stripe.Subscription) *ProcessorSubscription {
	out := &ProcessorSubscription{
		ID:                s.ID,
		Status:            Status(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.CancelAt > 0 {
		out.CancelAt = time.Unix(s.CancelAt, 0).UTC()
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		if item.CurrentPeriodEnd > 0 {
			out.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
		if item.Price != nil {
			out.UnitAmount = item.Price.UnitAmount
			if item.Price.Product != nil {
				out.ProductID = item.Price.Product.ID
			}
			if item.Price.Recurring != nil {
				out.Interval = string(item.Price.Recurring.Interval)
			}
		}
	}
	return out
}

// classifyStripeError marks network failures, rate limiting and server
// errors as ErrTransient.
func classifyStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError {
			return errors.Join(ErrTransient, err)
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return errors.Join(ErrTransient, err)
	}
	return err
}

// StripeVerifier checks Stripe-Signature headers.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) Verify(payload []byte, signature string) (Envelope, error) {
	if strings.TrimSpace(v.secret) == "" {
		return Envelope{}, errors.New("webhook secret not configured")
	}
	if strings.TrimSpace(signature) == "" {
		return Envelope{}, errors.New("missing Stripe signature")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{ID: event.ID, Type: string(event.Type)}
	if event.Data != nil {
		env.Data = event.Data.Raw
	}
	return env, nil
}
