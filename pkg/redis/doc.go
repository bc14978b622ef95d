// Package redis provides helpers for connecting to a Redis server and using it
// as the shared webhook event claim set.
//
// The package wraps the go-redis client and adds:
//
//   - Connect, which retries the connection using the supplied configuration.
//   - Claims, a SET NX EX backed key set used to drop redelivered events
//     across service replicas.
//   - Healthcheck for readiness probes.
//
// Configuration is described by Config, populated from environment variables
// via github.com/caarlos0/env.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	claims := redis.NewClaims(client,
//	    redis.WithClaimPrefix(cfg.ClaimPrefix),
//	    redis.WithClaimTTL(cfg.ClaimTTL),
//	)
//	first, err := claims.Claim(ctx, "evt_123")
//
// # Errors
//
// Sentinel errors (ErrRedisNotReady, ErrClaimFailed, ...) wrap the underlying
// go-redis errors using errors.Join.
package redis
