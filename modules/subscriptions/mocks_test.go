package subscriptions_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/agentcoach/billing/pkg/billing"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) CreateCheckoutSession(ctx context.Context, in billing.CheckoutInput) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockService) CreatePortalSession(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockService) CancelSubscription(ctx context.Context, subscriptionID string) (time.Time, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockService) ListRecords(ctx context.Context) ([]billing.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Record), args.Error(1)
}

func (m *mockService) ListRecordsByEmail(ctx context.Context, email string) ([]billing.Record, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Record), args.Error(1)
}

func (m *mockService) HandleWebhook(ctx context.Context, payload []byte, signature string) (billing.Result, error) {
	args := m.Called(ctx, payload, signature)
	return args.Get(0).(billing.Result), args.Error(1)
}
