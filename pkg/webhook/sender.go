package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultRetries     = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffCap  = 30 * time.Second
	defaultUserAgent   = "billing-webhook/1.0"

	// responseSnippetLimit bounds how much of a failed response body ends up in the error.
	responseSnippetLimit = 200
)

// Sender delivers JSON payloads over HTTP POST with retries, optional
// HMAC signing and an optional circuit breaker. Safe for concurrent use.
type Sender struct {
	client      *http.Client
	timeout     time.Duration
	retries     int
	backoffBase time.Duration
	backoffCap  time.Duration
	secret      string
	userAgent   string
	headers     http.Header
	breaker     *CircuitBreaker
	onAttempt   func(Attempt)
}

// NewSender creates a Sender configured by opts.
func NewSender(opts ...Option) *Sender {
	s := &Sender{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:     defaultTimeout,
		retries:     defaultRetries,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
		userAgent:   defaultUserAgent,
		headers:     make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send marshals data to JSON and posts it to endpoint. Network errors,
// 5xx responses and 408/425/429 are retried; other 4xx responses fail
// immediately with ErrPermanentFailure.
func (s *Sender) Send(ctx context.Context, endpoint string, data any) error {
	if err := validateURL(endpoint); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	if s.breaker != nil && !s.breaker.Allow() {
		return ErrCircuitOpen
	}

	backoff := retry.NewExponential(s.backoffBase)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithCappedDuration(s.backoffCap, backoff)
	backoff = retry.WithMaxRetries(uint64(s.retries), backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		status, dur, err := s.deliver(ctx, endpoint, payload)

		if s.onAttempt != nil {
			s.onAttempt(Attempt{Number: attempt, StatusCode: status, Duration: dur, Err: err})
		}
		if s.breaker != nil {
			if err == nil {
				s.breaker.RecordSuccess()
			} else {
				s.breaker.RecordFailure()
			}
		}

		switch {
		case err == nil:
			return nil
		case isPermanentStatus(status):
			return errors.Join(ErrPermanentFailure, err)
		default:
			return retry.RetryableError(err)
		}
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPermanentFailure):
		return err
	case ctx.Err() != nil:
		return errors.Join(ErrDeliveryFailed, ctx.Err())
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, attempt, err)
	}
}

// deliver performs a single POST and reports the status code and elapsed time.
func (s *Sender) deliver(ctx context.Context, endpoint string, payload []byte) (int, time.Duration, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, time.Since(start), fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range s.headers {
		req.Header[k] = v
	}

	if s.secret != "" {
		sig, err := Sign(s.secret, payload)
		if err != nil {
			return 0, time.Since(start), err
		}
		sig.Apply(req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, time.Since(start), errors.Join(ErrTimeout, err)
		}
		return 0, time.Since(start), errors.Join(ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	dur := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("endpoint responded with status %d", resp.StatusCode)
		if snippet := responseSnippet(body); snippet != "" {
			msg += ": " + snippet
		}
		return resp.StatusCode, dur, errors.New(msg)
	}

	return resp.StatusCode, dur, nil
}

func validateURL(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.Join(ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}

// isPermanentStatus reports 4xx codes that will not change on retry.
func isPermanentStatus(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}

func responseSnippet(body []byte) string {
	s := strings.TrimSpace(strings.ReplaceAll(string(body), "\n", " "))
	if len(s) > responseSnippetLimit {
		s = s[:responseSnippetLimit] + "..."
	}
	return s
}
