package config

import (
	"fmt"
	"strings"
	"time"
)

// RolelessPolicy mirrors gate.RolelessPolicy so config stays free of domain imports.
type RolelessPolicy string

// UnmarshalText implements encoding.TextUnmarshaler for RolelessPolicy.
func (p *RolelessPolicy) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "corrupt", "onboard":
		*p = RolelessPolicy(v)
		return nil
	default:
		return fmt.Errorf("invalid RolelessPolicy: %q (valid options: corrupt, onboard)", v)
	}
}

// GateConfig tunes the redirect guard.
type GateConfig struct {
	// MaxWait caps the loading placeholder before a signed-out fallback.
	MaxWait time.Duration `env:"MAX_WAIT" envDefault:"5s"`
	// FetchTimeout bounds a single identity snapshot fetch.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"3s"`
	// MaxHops caps consecutive guard redirects before giving up.
	MaxHops int `env:"MAX_HOPS" envDefault:"4"`
	// RolelessPolicy decides how role-restricted pages treat users with no role.
	RolelessPolicy RolelessPolicy `env:"ROLELESS_POLICY" envDefault:"corrupt"`
}

// Sanitize applies guardrails to guard timings.
func (g *GateConfig) Sanitize() {
	if g.MaxWait <= 0 {
		g.MaxWait = 5 * time.Second
	}
	if g.FetchTimeout <= 0 || g.FetchTimeout > g.MaxWait {
		g.FetchTimeout = g.MaxWait
	}
	if g.MaxHops < 1 {
		g.MaxHops = 4
	}
	if g.RolelessPolicy == "" {
		g.RolelessPolicy = "corrupt"
	}
}

// SignupConfig holds sign-up policy.
type SignupConfig struct {
	// OrganizerEmailDomain restricts organizer sign-ups to addresses under this
	// registrable domain. Empty allows any address.
	OrganizerEmailDomain string `env:"ORGANIZER_EMAIL_DOMAIN" envDefault:"uom.lk"`
}

// Sanitize normalises the domain.
func (s *SignupConfig) Sanitize() {
	s.OrganizerEmailDomain = strings.Trim(strings.ToLower(strings.TrimSpace(s.OrganizerEmailDomain)), "@.")
}

// CodesConfig controls one-time codes and sign-in lockout.
type CodesConfig struct {
	TTL              time.Duration `env:"TTL"               envDefault:"10m"`
	ResendCooldown   time.Duration `env:"RESEND_COOLDOWN"   envDefault:"60s"`
	MaxAttempts      int           `env:"MAX_ATTEMPTS"      envDefault:"5"`
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutDuration  time.Duration `env:"LOCKOUT_DURATION"  envDefault:"15m"`
}

// Sanitize applies guardrails to code policy.
func (c *CodesConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	if c.ResendCooldown < 0 {
		c.ResendCooldown = 0
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.LockoutThreshold < 0 {
		c.LockoutThreshold = 0
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 15 * time.Minute
	}
}
