package subscriptions

type Config struct {
	AllowedOrigins      []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`      // AllowedOrigins defaults to the frontend URL when empty.
	MaxBodyBytes        int64    `env:"HTTP_MAX_BODY_BYTES" envDefault:"65536"`     // MaxBodyBytes bounds JSON request bodies.
	WebhookMaxBodyBytes int64    `env:"WEBHOOK_MAX_BODY_BYTES" envDefault:"524288"` // WebhookMaxBodyBytes bounds processor webhook payloads.
}
