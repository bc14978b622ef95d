package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CheckoutInput is a customer's plan selection.
type CheckoutInput struct {
	Plan           string
	BillingPeriod  string
	Email          string
	ExternalUserID string // identity-provider user id, echoed in metadata
}

// CheckoutInitiator turns a plan selection into a hosted checkout session.
// It writes nothing locally; the record is created once the processor
// reports the completed checkout.
type CheckoutInitiator struct {
	catalog     *Catalog
	processor   Processor
	frontendURL string
	brand       string
}

func NewCheckoutInitiator(catalog *Catalog, processor Processor, frontendURL, brand string) *CheckoutInitiator {
	if catalog == nil {
		panic("billing: Catalog is required")
	}
	if processor == nil {
		panic("billing: Processor is required")
	}
	return &CheckoutInitiator{
		catalog:     catalog,
		processor:   processor,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		brand:       brand,
	}
}

// Create validates the selection against the catalog before calling the
// processor.
func (c *CheckoutInitiator) Create(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	period := BillingPeriod(strings.ToLower(strings.TrimSpace(in.BillingPeriod)))
	entry, err := c.catalog.Lookup(strings.TrimSpace(in.Plan), period)
	if err != nil {
		return nil, err
	}
	plan, _ := c.catalog.Plan(entry.PlanID)
	email := NormalizeEmail(in.Email)

	productName := fmt.Sprintf("%s %s Plan (%s)", c.brand, entry.Name, entry.Period)
	if c.brand == "" {
		productName = fmt.Sprintf("%s Plan (%s)", entry.Name, entry.Period)
	}

	session, err := c.processor.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		ProductName:        productName,
		ProductDescription: entry.Description,
		Currency:           entry.Currency,
		UnitAmount:         entry.UnitPrice,
		Interval:           entry.Interval,
		CustomerEmail:      email,
		SuccessURL:         c.frontendURL + "/pricing?success=true",
		CancelURL:          c.frontendURL + "/pricing?canceled=true",
		Metadata: map[string]string{
			"planId":          entry.PlanID,
			"planName":        entry.Name,
			"planDescription": entry.Description,
			"billingPeriod":   string(entry.Period),
			"price":           strconv.FormatInt(entry.UnitPrice, 10),
			"monthlyPrice":    strconv.FormatInt(plan.MonthlyPrice, 10),
			"annualPrice":     strconv.FormatInt(plan.AnnualPrice, 10),
			"email":           email,
			"clerkUserId":     in.ExternalUserID,
		},
	})
	if err != nil {
		return nil, errors.Join(ErrUpstream, err)
	}
	return session, nil
}
