package billing_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/agentcoach/billing/pkg/billing"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreateCheckoutSession(ctx context.Context, req billing.CheckoutSessionRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockProcessor) GetSubscription(ctx context.Context, id string) (*billing.ProcessorSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProcessorSubscription), args.Error(1)
}

func (m *mockProcessor) GetCustomer(ctx context.Context, id string) (*billing.ProcessorCustomer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProcessorCustomer), args.Error(1)
}

func (m *mockProcessor) GetProduct(ctx context.Context, id string) (*billing.ProcessorProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProcessorProduct), args.Error(1)
}

func (m *mockProcessor) CancelAtPeriodEnd(ctx context.Context, id string) (*billing.ProcessorSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProcessorSubscription), args.Error(1)
}

func (m *mockProcessor) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

// recordingIdentity captures every pushed record.
type recordingIdentity struct {
	mu     sync.Mutex
	pushed []billing.Record
	err    error
}

func (r *recordingIdentity) Push(_ context.Context, rec billing.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, rec)
	return r.err
}

func (r *recordingIdentity) calls() []billing.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]billing.Record(nil), r.pushed...)
}

type countingObserver struct {
	mu           sync.Mutex
	outcomes     map[billing.Outcome]int
	rejected     int
	identityFail int
	superseded   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{outcomes: map[billing.Outcome]int{}}
}

func (o *countingObserver) EventReconciled(_ string, outcome billing.Outcome, _ time.Duration) {
	o.mu.Lock()
	o.outcomes[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) SignatureRejected() {
	o.mu.Lock()
	o.rejected++
	o.mu.Unlock()
}

func (o *countingObserver) IdentitySyncFailed(string) {
	o.mu.Lock()
	o.identityFail++
	o.mu.Unlock()
}

func (o *countingObserver) RecordSuperseded() {
	o.mu.Lock()
	o.superseded++
	o.mu.Unlock()
}
