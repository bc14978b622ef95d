package webhook

import "time"

// SetBreakerClock replaces the breaker's time source.
func SetBreakerClock(cb *CircuitBreaker, now func() time.Time) {
	cb.now = now
}

// SignAt signs payload as if at the given time.
func SignAt(secret string, payload []byte, at time.Time) (Signature, error) {
	return signAt(secret, payload, at)
}
