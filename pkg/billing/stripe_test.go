package billing

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func TestStripeProcessorCreateCheckoutSession(t *testing.T) {
	t.Parallel()

	var got *stripe.CheckoutSessionParams
	p := &StripeProcessor{
		createCheckoutSession: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			got = params
			return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
		},
	}

	ctx := context.Background()
	session, err := p.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		ProductName:        "AgentCoach.AI Team Plan (annual)",
		ProductDescription: "Advanced coaching",
		Currency:           "usd",
		UnitAmount:         28790,
		Interval:           "year",
		CustomerEmail:      "a@b.com",
		SuccessURL:         "https://app/pricing?success=true",
		CancelURL:          "https://app/pricing?canceled=true",
		Metadata:           map[string]string{"planId": "team"},
	})
	require.NoError(t, err)
	assert.Equal(t, &CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, session)

	require.NotNil(t, got)
	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *got.Mode)
	assert.Equal(t, "a@b.com", *got.CustomerEmail)
	assert.Equal(t, ctx, got.Context)
	require.Len(t, got.LineItems, 1)
	item := got.LineItems[0]
	assert.Equal(t, int64(1), *item.Quantity)
	assert.Equal(t, int64(28790), *item.PriceData.UnitAmount)
	assert.Equal(t, "year", *item.PriceData.Recurring.Interval)
	assert.Equal(t, "AgentCoach.AI Team Plan (annual)", *item.PriceData.ProductData.Name)
	assert.Equal(t, map[string]string{"planId": "team"}, got.Metadata)
}

func TestStripeProcessorSubscriptionMapping(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)
	sub := &stripe.Subscription{
		ID:                "sub_1",
		Status:            stripe.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
		CancelAt:          end.Unix(),
		Customer:          &stripe.Customer{ID: "cus_1"},
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{
			CurrentPeriodEnd: end.Unix(),
			Price: &stripe.Price{
				UnitAmount: 999,
				Product:    &stripe.Product{ID: "prod_1"},
				Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth},
			},
		}}},
	}
	p := &StripeProcessor{
		getSubscription: func(id string, _ *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			assert.Equal(t, "sub_1", id)
			return sub, nil
		},
		updateSubscription: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			assert.True(t, *params.CancelAtPeriodEnd)
			return sub, nil
		},
	}

	want := &ProcessorSubscription{
		ID:                "sub_1",
		CustomerID:        "cus_1",
		Status:            StatusActive,
		CurrentPeriodEnd:  end,
		CancelAtPeriodEnd: true,
		CancelAt:          end,
		ProductID:         "prod_1",
		UnitAmount:        999,
		Interval:          "month",
	}

	got, err := p.GetSubscription(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = p.CancelAtPeriodEnd(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClassifyStripeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", &stripe.Error{HTTPStatusCode: 429}, true},
		{"server error", &stripe.Error{HTTPStatusCode: 502}, true},
		{"not found", &stripe.Error{HTTPStatusCode: 404}, false},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.transient, errors.Is(classifyStripeError(tt.err), ErrTransient))
		})
	}

	p := &StripeProcessor{
		getCustomer: func(string, *stripe.CustomerParams) (*stripe.Customer, error) {
			return nil, &stripe.Error{HTTPStatusCode: 503}
		},
	}
	_, err := p.GetCustomer(context.Background(), "cus_1")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestStripeVerifier(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_verify",
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	env, err := NewStripeVerifier("whsec_verify").Verify(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", env.ID)
	assert.Equal(t, EventSubscriptionDeleted, env.Type)
	assert.JSONEq(t, `{"id":"sub_1"}`, string(env.Data))

	_, err = NewStripeVerifier("whsec_other").Verify(signed.Payload, signed.Header)
	assert.Error(t, err)

	_, err = NewStripeVerifier("whsec_verify").Verify(signed.Payload, "")
	assert.Error(t, err)

	_, err = NewStripeVerifier("").Verify(signed.Payload, signed.Header)
	assert.Error(t, err)

	old := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_verify",
		Timestamp: time.Now().Add(-time.Hour),
		Scheme:    "v1",
	})
	_, err = NewStripeVerifier("whsec_verify").Verify(old.Payload, old.Header)
	assert.Error(t, err, "stale timestamps are rejected")
}

func TestNewStripeProcessorRequiresKey(t *testing.T) {
	_, err := NewStripeProcessor(StripeConfig{})
	assert.Error(t, err)
}
