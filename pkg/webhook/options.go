package webhook

import (
	"net/http"
	"time"
)

// Attempt describes a single delivery attempt. It is passed to the
// observer registered with WithOnAttempt.
type Attempt struct {
	Number     int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout bounds each individual attempt. Default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets how many times a failed attempt is retried and the base
// delay of the exponential backoff between attempts. Zero retries disables
// retrying.
func WithRetries(n int, base time.Duration) Option {
	return func(s *Sender) {
		if n >= 0 {
			s.retries = n
		}
		if base > 0 {
			s.backoffBase = base
		}
	}
}

// WithMaxBackoff caps the delay between two attempts.
func WithMaxBackoff(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.backoffCap = d
		}
	}
}

// WithSigningSecret enables HMAC-SHA256 signing of every request body.
func WithSigningSecret(secret string) Option {
	return func(s *Sender) {
		s.secret = secret
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(s *Sender) {
		if key != "" && value != "" {
			s.headers.Set(key, value)
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Sender) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithCircuitBreaker guards the endpoint with cb. Share one breaker per
// endpoint so failures are tracked across calls.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(s *Sender) {
		s.breaker = cb
	}
}

// WithOnAttempt registers a callback invoked after every attempt.
func WithOnAttempt(fn func(Attempt)) Option {
	return func(s *Sender) {
		s.onAttempt = fn
	}
}
