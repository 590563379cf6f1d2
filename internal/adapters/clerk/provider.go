// Package clerk adapts the Clerk Backend API to ports.IdentityProvider.
//
// Profile data lives in the user's unsafe metadata as flat string values.
// Users created through the Backend API have verified addresses, so the
// adapter tracks confirmation of sign-up emails in private metadata.
package clerk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// privateKeyEmailConfirmed is the private metadata flag set to false until
// the user enters their verification code.
const privateKeyEmailConfirmed = "emailConfirmed"

// Config holds Clerk credentials.
type Config struct {
	SecretKey  string
	APIURL     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider implements ports.IdentityProvider over Clerk.
type Provider struct {
	api    backend
	logger *slog.Logger
}

// NewProvider constructs a Clerk-backed provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("clerk: secret key is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		api:    newSDKBackend(cfg.SecretKey, cfg.APIURL, cfg.HTTPClient),
		logger: logger.With("component", "clerk"),
	}, nil
}

func (p *Provider) GetUser(ctx context.Context, userID string) (ports.User, error) {
	u, err := p.api.GetUser(ctx, userID)
	if err != nil {
		return ports.User{}, mapError("get user", err)
	}
	return toUser(u), nil
}

func (p *Provider) FindUserByEmail(ctx context.Context, email string) (ports.User, error) {
	users, err := p.api.ListUsersByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return ports.User{}, mapError("list users", err)
	}
	if len(users) == 0 {
		return ports.User{}, ports.ErrUserNotFound
	}
	return toUser(users[0]), nil
}

func (p *Provider) CreateUser(ctx context.Context, in ports.CreateUserInput) (ports.User, error) {
	params := &user.CreateParams{
		EmailAddresses: &[]string{strings.ToLower(strings.TrimSpace(in.Email))},
		FirstName:      clerk.String(in.FirstName),
		LastName:       clerk.String(in.LastName),
	}
	if in.Password != "" {
		params.Password = clerk.String(in.Password)
	} else {
		params.SkipPasswordRequirement = clerk.Bool(true)
	}
	if len(in.Metadata) > 0 {
		raw, err := encodeMetadata(in.Metadata)
		if err != nil {
			return ports.User{}, err
		}
		params.UnsafeMetadata = raw
	}
	if !in.EmailVerified {
		raw := json.RawMessage(`{"` + privateKeyEmailConfirmed + `":false}`)
		params.PrivateMetadata = &raw
	}

	u, err := p.api.CreateUser(ctx, params)
	if err != nil {
		return ports.User{}, mapError("create user", err)
	}
	return toUser(u), nil
}

func (p *Provider) VerifyPassword(ctx context.Context, userID, password string) error {
	return mapError("verify password", p.api.VerifyPassword(ctx, userID, password))
}

// UpdateMetadata relies on Clerk's deep merge: one request, untouched keys
// survive, empty values are sent as null to remove the key.
func (p *Provider) UpdateMetadata(ctx context.Context, userID string, patch map[string]string) (ports.User, error) {
	raw, err := encodeMetadata(patch)
	if err != nil {
		return ports.User{}, err
	}
	u, err := p.api.UpdateMetadata(ctx, userID, &user.UpdateMetadataParams{UnsafeMetadata: raw})
	if err != nil {
		return ports.User{}, mapError("update metadata", err)
	}
	return toUser(u), nil
}

func (p *Provider) MarkEmailVerified(ctx context.Context, userID string) error {
	u, err := p.api.GetUser(ctx, userID)
	if err != nil {
		return mapError("get user", err)
	}

	if addr := primaryEmail(u); addr != nil && !addressVerified(addr) {
		if err := p.api.VerifyEmailAddress(ctx, addr.ID); err != nil {
			return mapError("verify email address", err)
		}
	}

	raw := json.RawMessage(`{"` + privateKeyEmailConfirmed + `":true}`)
	if _, err := p.api.UpdateMetadata(ctx, userID, &user.UpdateMetadataParams{PrivateMetadata: &raw}); err != nil {
		return mapError("update private metadata", err)
	}
	return nil
}

func (p *Provider) SetPassword(ctx context.Context, userID, password string) error {
	_, err := p.api.UpdateUser(ctx, userID, &user.UpdateParams{Password: clerk.String(password)})
	return mapError("set password", err)
}

func encodeMetadata(m map[string]string) (*json.RawMessage, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == "" {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	raw := json.RawMessage(b)
	return &raw, nil
}

// decodeMetadata flattens a metadata object. Non-string values keep their
// JSON text so the classifier still sees them as present.
func decodeMetadata(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return out
	}
	for k, v := range m {
		// Cleared keys come back as null and count as absent.
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out
}

func primaryEmail(u *clerk.User) *clerk.EmailAddress {
	if u == nil || len(u.EmailAddresses) == 0 {
		return nil
	}
	for _, e := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != nil && e.ID == *u.PrimaryEmailAddressID {
			return e
		}
	}
	return u.EmailAddresses[0]
}

func addressVerified(e *clerk.EmailAddress) bool {
	return e.Verification != nil && e.Verification.Status == "verified"
}

func toUser(u *clerk.User) ports.User {
	if u == nil {
		return ports.User{}
	}
	out := ports.User{
		ID:        u.ID,
		FirstName: stringValue(u.FirstName),
		LastName:  stringValue(u.LastName),
		Metadata:  decodeMetadata(u.UnsafeMetadata),
		CreatedAt: time.UnixMilli(u.CreatedAt).UTC(),
	}
	if addr := primaryEmail(u); addr != nil {
		out.Email = addr.EmailAddress
		out.EmailVerified = addressVerified(addr)
	}
	if out.EmailVerified {
		private := decodeMetadata(u.PrivateMetadata)
		if private[privateKeyEmailConfirmed] == "false" {
			out.EmailVerified = false
		}
	}
	return out
}

// stringValue safely converts a *string to string
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ ports.IdentityProvider = (*Provider)(nil)
