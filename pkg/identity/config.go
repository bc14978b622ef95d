package identity

import (
	"strings"
	"time"
)

// DefaultPath is appended to the frontend URL when no explicit endpoint is configured.
const DefaultPath = "/api/stripe"

type Config struct {
	URL             string        `env:"IDENTITY_SYNC_URL"`                               // URL receives subscription changes. Defaults to FRONTEND_URL + DefaultPath.
	Secret          string        `env:"IDENTITY_SYNC_SECRET"`                            // Secret enables request signing when set.
	Timeout         time.Duration `env:"IDENTITY_SYNC_TIMEOUT" envDefault:"2s"`           // Timeout bounds a single attempt.
	Retries         int           `env:"IDENTITY_SYNC_RETRIES" envDefault:"2"`            // Retries after the first failed attempt.
	RetryBackoff    time.Duration `env:"IDENTITY_SYNC_RETRY_BACKOFF" envDefault:"250ms"`  // RetryBackoff is the base of the exponential backoff.
	BreakerFailures int           `env:"IDENTITY_SYNC_BREAKER_FAILURES" envDefault:"5"`   // BreakerFailures opens the circuit after this many consecutive failures.
	BreakerCooldown time.Duration `env:"IDENTITY_SYNC_BREAKER_COOLDOWN" envDefault:"30s"` // BreakerCooldown is how long the circuit stays open.
}

// Endpoint returns the configured URL or derives it from frontendURL.
func (c Config) Endpoint(frontendURL string) string {
	if c.URL != "" {
		return c.URL
	}
	if frontendURL == "" {
		return ""
	}
	return strings.TrimRight(frontendURL, "/") + DefaultPath
}

// PushBudget is the longest a single Push can block: every attempt timing out
// plus the jittered backoff between attempts. Pushes run before a webhook
// delivery is acknowledged, so this must stay below the processor's
// delivery timeout.
func (c Config) PushBudget() time.Duration {
	total := c.Timeout * time.Duration(c.Retries+1)
	backoff := c.RetryBackoff
	for range c.Retries {
		total += backoff + backoff/10
		backoff *= 2
	}
	return total
}
