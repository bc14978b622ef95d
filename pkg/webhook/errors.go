package webhook

import "errors"

// Delivery errors. Detailed causes are wrapped alongside these so callers
// can classify with errors.Is.
var (
	ErrDeliveryFailed   = errors.New("webhook delivery failed")
	ErrPermanentFailure = errors.New("permanent webhook failure")
	ErrTemporaryFailure = errors.New("temporary webhook failure")
	ErrCircuitOpen      = errors.New("webhook circuit breaker is open")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrInvalidURL       = errors.New("invalid webhook URL")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingSecret    = errors.New("webhook signing secret is required")
	ErrTimeout          = errors.New("webhook request timeout")
)

// IsCircuitOpen reports whether err was caused by an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsPermanent reports whether err is a delivery failure that retrying will not fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure)
}
