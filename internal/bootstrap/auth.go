package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sponsorlink/sponsorlink-web/config"
	"github.com/sponsorlink/sponsorlink-web/internal/adapters/clerk"
	"github.com/sponsorlink/sponsorlink-web/internal/adapters/devauth"
	"github.com/sponsorlink/sponsorlink-web/internal/adapters/oidc"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// AuthConfig contains configuration for the identity and SSO providers.
type AuthConfig struct {
	Auth   config.AuthConfig
	Logger *slog.Logger
}

func (c AuthConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// BuildIdentityProvider creates the identity provider of record for the
// configured mode. Mock mode seeds its users before returning.
//
//nolint:ireturn // the provider is chosen at runtime.
func BuildIdentityProvider(ctx context.Context, cfg AuthConfig) (ports.IdentityProvider, error) {
	switch cfg.Auth.Mode {
	case config.IdentityModeClerk:
		provider, err := clerk.NewProvider(clerk.Config{
			SecretKey: cfg.Auth.Clerk.SecretKey,
			APIURL:    cfg.Auth.Clerk.APIURL,
			Logger:    cfg.logger().With("component", "clerk"),
		})
		if err != nil {
			return nil, fmt.Errorf("build clerk provider: %w", err)
		}
		return provider, nil

	case config.IdentityModeMock:
		provider := devauth.NewProvider()
		if err := provider.Seed(ctx, cfg.Auth.DevAuth.SeedUsers, profile.MetadataKeyRole); err != nil {
			return nil, err
		}
		cfg.logger().WarnContext(ctx, "using in-memory identity provider; accounts are lost on restart",
			"seeded", len(cfg.Auth.DevAuth.SeedUsers))
		return provider, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

// BuildSSOProvider returns the configured single sign-on provider, or nil
// when single sign-on is off.
//
//nolint:ireturn // the provider is chosen at runtime.
func BuildSSOProvider(ctx context.Context, cfg AuthConfig) (ports.SSOProvider, error) {
	if cfg.Auth.OAuth.Enabled {
		provider, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     cfg.Auth.OAuth.ClientID,
			ClientSecret: cfg.Auth.OAuth.ClientSecret,
			RedirectURL:  cfg.Auth.OAuth.RedirectURL,
			Scope:        cfg.Auth.OAuth.Scope,
			DiscoveryURL: cfg.Auth.OAuth.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("build oidc provider: %w", err)
		}
		return provider, nil
	}

	email := strings.TrimSpace(cfg.Auth.DevAuth.SSOEmail)
	if email == "" {
		return nil, nil
	}
	if cfg.Auth.Mode != config.IdentityModeMock {
		return nil, errors.New("DEV_AUTH_SSO_EMAIL requires AUTH_MODE=mock")
	}
	local, _, _ := strings.Cut(email, "@")
	provider, err := devauth.NewSSO(devauth.SSOConfig{Email: email, FirstName: local})
	if err != nil {
		return nil, err
	}
	cfg.logger().WarnContext(ctx, "using dev single sign-on", "email", email)
	return provider, nil
}
