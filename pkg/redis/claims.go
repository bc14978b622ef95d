package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultClaimTTL is how long a claimed key is remembered.
const DefaultClaimTTL = 72 * time.Hour

// Claims is a set of short-lived keys where each key can be claimed once.
// It is used to drop redelivered webhook events across replicas.
type Claims struct {
	db     redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// ClaimsOption configures Claims.
type ClaimsOption func(*Claims)

// WithClaimPrefix namespaces claimed keys.
func WithClaimPrefix(prefix string) ClaimsOption {
	return func(c *Claims) { c.prefix = prefix }
}

// WithClaimTTL overrides DefaultClaimTTL. Non-positive values are ignored.
func WithClaimTTL(ttl time.Duration) ClaimsOption {
	return func(c *Claims) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewClaims(client redis.UniversalClient, opts ...ClaimsOption) *Claims {
	if client == nil {
		panic("redis: client is required")
	}
	c := &Claims{db: client, prefix: "claim:", ttl: DefaultClaimTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Claim returns true if the key was not claimed before. Empty keys are
// always claimable.
func (c *Claims) Claim(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	ok, err := c.db.SetNX(ctx, c.prefix+key, time.Now().UTC().Unix(), c.ttl).Result()
	if err != nil {
		return false, errors.Join(ErrClaimFailed, err)
	}
	return ok, nil
}

// Release forgets a claim so the key can be claimed again.
func (c *Claims) Release(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := c.db.Del(ctx, c.prefix+key).Err(); err != nil {
		return errors.Join(ErrClaimFailed, err)
	}
	return nil
}
