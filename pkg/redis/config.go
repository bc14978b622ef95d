package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`                              // ConnectionURL is the URL of the server, e.g. "redis://:password@localhost:6379/0". Empty disables Redis.
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`    // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`   // RetryInterval is the pause between attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // ConnectTimeout bounds the whole connect phase.
	ClaimTTL       time.Duration `env:"REDIS_CLAIM_TTL" envDefault:"72h"`       // ClaimTTL is how long webhook event ids are remembered.
	ClaimPrefix    string        `env:"REDIS_CLAIM_PREFIX" envDefault:"billing:event:"`
}
