package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: identity provider and SSO configuration
//   - redis.go: session, code and lockout storage
//   - http.go: HTTP server configuration
//   - gate.go: redirect guard, sign-up and one-time code policy
//   - observability.go: metrics, support notifications and code delivery
type AppConfig struct {
	// IsDev controls development mode behavior (templates from disk, no caching).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	Redis RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Gate GateConfig `envPrefix:"GATE_"`

	Signup SignupConfig `envPrefix:"SIGNUP_"`

	Codes CodesConfig `envPrefix:"CODES_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Gate.Sanitize()
	c.Signup.Sanitize()
	c.Codes.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
