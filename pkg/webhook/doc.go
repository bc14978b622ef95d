// Package webhook posts JSON payloads to HTTP endpoints the service does not
// own, such as the identity provider bridge that receives subscription
// changes.
//
// A Sender retries network errors, 5xx responses and the retryable 4xx codes
// (408, 425, 429) with capped exponential backoff and jitter. Other 4xx
// responses fail at once with ErrPermanentFailure. A shared CircuitBreaker
// short-circuits calls to an endpoint that keeps failing.
//
//	sender := webhook.NewSender(
//	    webhook.WithTimeout(5*time.Second),
//	    webhook.WithRetries(3, 500*time.Millisecond),
//	    webhook.WithSigningSecret(secret),
//	    webhook.WithCircuitBreaker(webhook.NewCircuitBreaker(5, 2, 30*time.Second)),
//	)
//	err := sender.Send(ctx, "https://app.example.com/api/stripe", payload)
//
// When a signing secret is set, each request carries X-Billing-Signature,
// X-Billing-Timestamp and X-Billing-Delivery. The signature is the hex
// HMAC-SHA256 of "<timestamp>.<body>". Receivers check it with
// ParseSignature and Verify.
package webhook
