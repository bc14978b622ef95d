// Package config loads typed configuration from environment variables and
// optional dotenv files.
//
// Every package that needs settings declares its own Config struct with
// `env` and `envDefault` tags. The binary composes them into one struct and
// calls Load once at startup. Values from the process environment take
// precedence over dotenv files, which never overwrite existing variables.
package config
