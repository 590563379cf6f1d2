// Package oidc implements "Continue with SSO" against any OpenID Connect
// identity provider.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// Provider implements ports.SSOProvider using OIDC/OAuth2.
type Provider struct {
	config       *oauth2.Config
	httpClient   *http.Client
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
	now          func() time.Time
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s client
}

// DiscoveryDocument is the subset of the OIDC discovery document we read.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider creates a provider, fetching the discovery document once.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	switch {
	case config.ClientID == "":
		return nil, errors.New("client ID is required")
	case config.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case config.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case config.DiscoveryURL == "":
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
		now:          time.Now,
	}, nil
}

// Begin returns the IdP authorization URL with fresh state and nonce.
// The redirect_uri always matches the configured RedirectURL; in.RedirectURL
// only has to be present.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange trades the code for tokens, verifies the ID token and nonce, and
// maps standard claims into an Identity. Missing claims are filled from the
// userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	c, err := p.verifyIDToken(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("extract id_token: %w", err)
	}

	if c.Email == "" || c.GivenName == "" {
		ui, uiErr := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if uiErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", uiErr)
		}
		var extra claims
		if claimsErr := ui.Claims(&extra); claimsErr != nil {
			return domainauth.Identity{}, fmt.Errorf("decode user info: %w", claimsErr)
		}
		c = mergeClaims(c, extra)
	}

	if c.Email == "" {
		return domainauth.Identity{}, errors.New("identity provider returned no email")
	}

	expiresAt := p.now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}
	return identityFromClaims(c, expiresAt), nil
}

// claims are the standard OIDC claims we consume.
type claims struct {
	Subject       string   `json:"sub"`
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	GivenName     string   `json:"given_name"`
	FamilyName    string   `json:"family_name"`
	Name          string   `json:"name"`
	Nonce         string   `json:"nonce"`
}

// flexBool accepts both JSON booleans and the "true"/"false" strings some IdPs emit.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.ToLower(string(data)), `"`) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

func (p *Provider) verifyIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (claims, error) {
	var c claims
	if !slices.Contains(p.config.Scopes, gooidc.ScopeOpenID) {
		return c, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return c, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return c, fmt.Errorf("verify id_token: %w", err)
	}
	if claimsErr := idTok.Claims(&c); claimsErr != nil {
		return c, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if c.Nonce != expectedNonce {
		return c, errors.New("invalid nonce")
	}
	return c, nil
}

// mergeClaims fills empty fields of c from extra. Verification only ever
// upgrades when the emails match.
func mergeClaims(c, extra claims) claims {
	if c.Subject == "" {
		c.Subject = extra.Subject
	}
	if c.Email == "" {
		c.Email = extra.Email
		c.EmailVerified = extra.EmailVerified
	} else if strings.EqualFold(c.Email, extra.Email) && bool(extra.EmailVerified) {
		c.EmailVerified = true
	}
	if c.GivenName == "" {
		c.GivenName = extra.GivenName
	}
	if c.FamilyName == "" {
		c.FamilyName = extra.FamilyName
	}
	if c.Name == "" {
		c.Name = extra.Name
	}
	return c
}

func identityFromClaims(c claims, expiresAt time.Time) domainauth.Identity {
	first, last := c.GivenName, c.FamilyName
	if first == "" && last == "" && c.Name != "" {
		first, last, _ = strings.Cut(strings.TrimSpace(c.Name), " ")
	}
	return domainauth.Identity{
		Subject:       c.Subject,
		Email:         strings.ToLower(strings.TrimSpace(c.Email)),
		EmailVerified: bool(c.EmailVerified),
		FirstName:     first,
		LastName:      strings.TrimSpace(last),
		ExpiresAt:     expiresAt,
	}
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, (length*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

var _ ports.SSOProvider = (*Provider)(nil)
