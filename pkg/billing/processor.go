package billing

import (
	"context"
	"encoding/json"
	"time"
)

// Processor is the subset of the payment processor API the service relies on.
// Implementations wrap transient failures (network, rate limit, 5xx) with
// ErrTransient so lookups can be retried.
type Processor interface {
	// CreateCheckoutSession creates a hosted subscription-mode checkout session.
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)

	GetSubscription(ctx context.Context, id string) (*ProcessorSubscription, error)
	GetCustomer(ctx context.Context, id string) (*ProcessorCustomer, error)
	GetProduct(ctx context.Context, id string) (*ProcessorProduct, error)

	// CancelAtPeriodEnd flags the subscription to end when the current period
	// ends and returns the updated subscription.
	CancelAtPeriodEnd(ctx context.Context, id string) (*ProcessorSubscription, error)

	// CreatePortalSession returns a hosted customer portal URL.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// EventVerifier checks a webhook signature against the raw payload and
// returns the decoded event envelope.
type EventVerifier interface {
	Verify(payload []byte, signature string) (Envelope, error)
}

// Envelope is a verified webhook event before its data object is interpreted.
type Envelope struct {
	ID   string
	Type string
	Data json.RawMessage
}

// CheckoutSessionRequest describes a single-line-item subscription checkout.
type CheckoutSessionRequest struct {
	ProductName        string
	ProductDescription string
	Currency           string
	UnitAmount         int64
	Interval           string
	CustomerEmail      string
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
}

// CheckoutSession is the processor's answer to a checkout request.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url,omitempty"`
}

// ProcessorSubscription is the authoritative subscription state.
type ProcessorSubscription struct {
	ID                string
	CustomerID        string
	Status            Status
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
	CancelAt          time.Time
	ProductID         string
	UnitAmount        int64
	Interval          string
}

type ProcessorCustomer struct {
	ID    string
	Email string
}

type ProcessorProduct struct {
	ID          string
	Name        string
	Description string
}
