package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// SSOConfig controls the dev single sign-on stand-in.
type SSOConfig struct {
	Email     string
	FirstName string
	LastName  string
	// CallbackPath is where Begin sends the browser back to.
	CallbackPath string
}

// SSO implements ports.SSOProvider for local development. It short-circuits
// the OIDC round trip by redirecting straight back to our own callback, and
// Exchange returns the configured identity.
type SSO struct {
	cfg SSOConfig
	now func() time.Time
}

// NewSSO constructs a dev SSO provider.
func NewSSO(cfg SSOConfig) (*SSO, error) {
	if cfg.Email == "" {
		return nil, errors.New("dev sso: Email is required")
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/auth/sso/callback"
	}
	return &SSO{cfg: cfg, now: time.Now}, nil
}

// Begin returns a local callback URL and cryptographically secure state and nonce.
func (s *SSO) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return s.cfg.CallbackPath + "?" + q.Encode(), state, nonce, nil
}

// Exchange ignores the code (state is validated by the handler) and returns the dev identity.
func (s *SSO) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	return domainauth.Identity{
		Subject:       "dev|" + s.cfg.Email,
		Email:         s.cfg.Email,
		EmailVerified: true,
		FirstName:     s.cfg.FirstName,
		LastName:      s.cfg.LastName,
		ExpiresAt:     s.now().Add(time.Hour),
	}, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}

var _ ports.SSOProvider = (*SSO)(nil)
