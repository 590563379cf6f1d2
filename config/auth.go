package config

import (
	"fmt"
	"strings"
	"time"
)

// IdentityMode selects the identity provider of record.
type IdentityMode string

const (
	// IdentityModeClerk uses the hosted Clerk Backend API.
	IdentityModeClerk IdentityMode = "clerk"
	// IdentityModeMock uses the in-memory provider (for development only).
	IdentityModeMock IdentityMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdentityMode.
func (m *IdentityMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "clerk", "mock":
		*m = IdentityMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdentityMode: %q (valid options: clerk, mock)", v)
	}
}

// ClerkConfig holds Clerk Backend API credentials.
type ClerkConfig struct {
	SecretKey string `env:"SECRET_KEY"`
	// APIURL overrides the Backend API base URL (tests, proxies).
	APIURL string `env:"API_URL"`
}

// OAuthConfig contains the optional "Continue with SSO" OIDC client.
type OAuthConfig struct {
	Enabled      bool   `env:"ENABLED"       envDefault:"false"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/sso/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig seeds the in-memory identity provider used when AUTH_MODE=mock.
type DevAuthConfig struct {
	// SeedUsers are "email:password:role" triples separated by ';'. Seeded
	// users are verified; role may be empty.
	SeedUsers []string `env:"SEED_USERS" envSeparator:";"`
	// SSOEmail enables the dev single sign-on stand-in when OAuth is not
	// configured. Only honoured in mock mode.
	SSOEmail string `env:"SSO_EMAIL"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode IdentityMode `env:"AUTH_MODE" envDefault:"clerk"`

	Clerk ClerkConfig `envPrefix:"CLERK_"`

	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionTTL bounds how long a server session lives.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`
}

// Sanitize trims credentials and disables SSO when it is incomplete.
func (a *AuthConfig) Sanitize() {
	a.Clerk.SecretKey = strings.TrimSpace(a.Clerk.SecretKey)
	a.Clerk.APIURL = strings.TrimRight(strings.TrimSpace(a.Clerk.APIURL), "/")
	if a.OAuth.Enabled && (a.OAuth.ClientID == "" || a.OAuth.DiscoveryURL == "") {
		a.OAuth.Enabled = false
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 7 * 24 * time.Hour
	}
}
