package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type loadOptions struct {
	files       []string
	environment map[string]string
}

// Option customizes a single Load call.
type Option func(*loadOptions)

// WithEnvFiles loads the given dotenv files before parsing. Variables already
// present in the process environment win. Missing files are skipped.
func WithEnvFiles(paths ...string) Option {
	return func(o *loadOptions) {
		o.files = append(o.files, paths...)
	}
}

// WithEnvironment parses from m instead of the process environment.
// Env files are ignored in this mode.
func WithEnvironment(m map[string]string) Option {
	return func(o *loadOptions) {
		o.environment = m
	}
}

// Load fills v from environment variables using `env` and `envDefault`
// struct tags. Nested structs are parsed recursively, so one call can
// populate a struct that embeds the configs of every package.
//
//	type appConfig struct {
//		Stripe billing.StripeConfig
//		Redis  redis.Config
//	}
//
//	var cfg appConfig
//	err := config.Load(&cfg, config.WithEnvFiles(".env"))
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.environment != nil {
		if err := env.ParseWithOptions(v, env.Options{Environment: o.environment}); err != nil {
			return errors.Join(ErrParsingConfig, err)
		}
		return nil
	}

	for _, path := range o.files {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.Join(ErrEnvFile, fmt.Errorf("%s: %w", path, err))
		}
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on error.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// EnvFiles returns the dotenv files to read: the value of ENV_FILE when set,
// otherwise ".env".
func EnvFiles() []string {
	if f := os.Getenv("ENV_FILE"); f != "" {
		return []string{f}
	}
	return []string{".env"}
}
