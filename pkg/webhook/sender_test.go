package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcoach/billing/pkg/webhook"
)

type payment struct {
	SubscriptionID string `json:"subscriptionId"`
	Tier           string `json:"tier"`
}

func fastRetries(n int) webhook.Option {
	return webhook.WithRetries(n, time.Millisecond)
}

func TestSenderSend(t *testing.T) {
	t.Parallel()

	var got payment
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "billing-webhook/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "bridge", r.Header.Get("X-Source"))
		assert.Empty(t, r.Header.Get(webhook.HeaderSignature))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	sender := webhook.NewSender(webhook.WithHeader("X-Source", "bridge"))
	err := sender.Send(context.Background(), srv.URL, payment{SubscriptionID: "sub_1", Tier: "team"})
	require.NoError(t, err)
	assert.Equal(t, payment{SubscriptionID: "sub_1", Tier: "team"}, got)
}

func TestSenderSignsBody(t *testing.T) {
	t.Parallel()

	const secret = "whsec_bridge"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		sig, err := webhook.ParseSignature(r.Header)
		assert.NoError(t, err)
		assert.NotEmpty(t, sig.DeliveryID)
		assert.NoError(t, webhook.Verify(secret, body, sig, time.Minute))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	sender := webhook.NewSender(webhook.WithSigningSecret(secret), webhook.WithUserAgent("bridge-test"))
	require.NoError(t, sender.Send(context.Background(), srv.URL, map[string]string{"k": "v"}))
}

func TestSenderRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	var mu sync.Mutex
	var attempts []webhook.Attempt
	sender := webhook.NewSender(fastRetries(3), webhook.WithOnAttempt(func(a webhook.Attempt) {
		mu.Lock()
		attempts = append(attempts, a)
		mu.Unlock()
	}))

	require.NoError(t, sender.Send(context.Background(), srv.URL, payment{SubscriptionID: "sub_1"}))
	assert.Equal(t, int32(3), calls.Load())

	require.Len(t, attempts, 3)
	assert.Equal(t, 1, attempts[0].Number)
	assert.Equal(t, http.StatusBadGateway, attempts[0].StatusCode)
	assert.Error(t, attempts[0].Err)
	assert.Equal(t, http.StatusTooManyRequests, attempts[1].StatusCode)
	assert.Equal(t, 3, attempts[2].Number)
	assert.NoError(t, attempts[2].Err)
}

func TestSenderGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	sender := webhook.NewSender(fastRetries(2))
	err := sender.Send(context.Background(), srv.URL, payment{SubscriptionID: "sub_1"})

	require.ErrorIs(t, err, webhook.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSenderPermanentFailure(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(code)
			}))
			t.Cleanup(srv.Close)

			err := webhook.NewSender(fastRetries(3)).Send(context.Background(), srv.URL, payment{})
			require.Error(t, err)
			assert.True(t, webhook.IsPermanent(err))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestSenderNoRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	err := webhook.NewSender(webhook.WithRetries(0, 0)).Send(context.Background(), srv.URL, payment{})
	require.ErrorIs(t, err, webhook.ErrDeliveryFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSenderAttemptTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	sender := webhook.NewSender(webhook.WithTimeout(20*time.Millisecond), webhook.WithRetries(0, 0))
	err := sender.Send(context.Background(), srv.URL, payment{})

	require.ErrorIs(t, err, webhook.ErrDeliveryFailed)
	assert.ErrorIs(t, err, webhook.ErrTimeout)
}

func TestSenderContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	sender := webhook.NewSender(
		webhook.WithRetries(10, time.Hour),
		webhook.WithOnAttempt(func(webhook.Attempt) { cancel() }),
	)

	err := sender.Send(ctx, srv.URL, payment{})
	require.ErrorIs(t, err, webhook.ErrDeliveryFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSenderValidation(t *testing.T) {
	t.Parallel()

	sender := webhook.NewSender()
	ctx := context.Background()

	tests := []struct {
		name    string
		url     string
		data    any
		wantErr error
	}{
		{name: "empty url", url: "", data: payment{}, wantErr: webhook.ErrInvalidURL},
		{name: "unsupported scheme", url: "ftp://example.com/hook", data: payment{}, wantErr: webhook.ErrInvalidURL},
		{name: "missing host", url: "http:///hook", data: payment{}, wantErr: webhook.ErrInvalidURL},
		{name: "nil payload", url: "http://example.com/hook", data: nil, wantErr: webhook.ErrInvalidPayload},
		{name: "unmarshalable payload", url: "http://example.com/hook", data: func() {}, wantErr: webhook.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, sender.Send(ctx, tt.url, tt.data), tt.wantErr)
		})
	}
}

func TestSenderCircuitBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cb := webhook.NewCircuitBreaker(2, 1, time.Hour)
	sender := webhook.NewSender(webhook.WithRetries(0, 0), webhook.WithCircuitBreaker(cb))

	for range 2 {
		err := sender.Send(context.Background(), srv.URL, payment{})
		require.ErrorIs(t, err, webhook.ErrDeliveryFailed)
	}
	assert.Equal(t, webhook.CircuitOpen, cb.State())

	err := sender.Send(context.Background(), srv.URL, payment{})
	assert.True(t, webhook.IsCircuitOpen(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSenderCircuitBreakerRecovers(t *testing.T) {
	t.Parallel()

	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cb, clock := newBreaker(1, 1, time.Minute)
	sender := webhook.NewSender(webhook.WithRetries(0, 0), webhook.WithCircuitBreaker(cb))

	require.Error(t, sender.Send(context.Background(), srv.URL, payment{}))
	assert.True(t, webhook.IsCircuitOpen(sender.Send(context.Background(), srv.URL, payment{})))

	healthy.Store(true)
	clock.Advance(2 * time.Minute)

	require.NoError(t, sender.Send(context.Background(), srv.URL, payment{}))
	assert.Equal(t, webhook.CircuitClosed, cb.State())
}

func TestSenderConcurrentSends(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	sender := webhook.NewSender(webhook.WithSigningSecret("s"))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sender.Send(context.Background(), srv.URL, payment{SubscriptionID: string(rune('a' + i))}))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), calls.Load())
}
