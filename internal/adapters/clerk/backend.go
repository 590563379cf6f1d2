package clerk

import (
	"context"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/emailaddress"
	"github.com/clerk/clerk-sdk-go/v2/user"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
)

var errPasswordNotVerified = &domainauth.OpError{Code: domainauth.CodePasswordIncorrect, Field: "password"}

// backend is the slice of the Clerk Backend API the provider uses.
type backend interface {
	GetUser(ctx context.Context, id string) (*clerk.User, error)
	ListUsersByEmail(ctx context.Context, email string) ([]*clerk.User, error)
	CreateUser(ctx context.Context, params *user.CreateParams) (*clerk.User, error)
	VerifyPassword(ctx context.Context, id, password string) error
	UpdateMetadata(ctx context.Context, id string, params *user.UpdateMetadataParams) (*clerk.User, error)
	UpdateUser(ctx context.Context, id string, params *user.UpdateParams) (*clerk.User, error)
	VerifyEmailAddress(ctx context.Context, emailAddressID string) error
}

// sdkBackend adapts the SDK's per-resource clients to backend.
type sdkBackend struct {
	users  *user.Client
	emails *emailaddress.Client
}

func newSDKBackend(secretKey, apiURL string, httpClient *http.Client) *sdkBackend {
	cfg := &clerk.ClientConfig{}
	cfg.Key = clerk.String(secretKey)
	if apiURL != "" {
		cfg.URL = clerk.String(apiURL)
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &sdkBackend{
		users:  user.NewClient(cfg),
		emails: emailaddress.NewClient(cfg),
	}
}

func (b *sdkBackend) GetUser(ctx context.Context, id string) (*clerk.User, error) {
	return b.users.Get(ctx, id)
}

func (b *sdkBackend) ListUsersByEmail(ctx context.Context, email string) ([]*clerk.User, error) {
	list, err := b.users.List(ctx, &user.ListParams{EmailAddresses: []string{email}})
	if err != nil {
		return nil, err
	}
	return list.Users, nil
}

func (b *sdkBackend) CreateUser(ctx context.Context, params *user.CreateParams) (*clerk.User, error) {
	return b.users.Create(ctx, params)
}

type verifyPasswordParams struct {
	clerk.APIParams
	Password string `json:"password"`
}

type passwordVerification struct {
	clerk.APIResource
	Verified bool `json:"verified"`
}

// VerifyPassword calls POST /users/{id}/verify_password, which the SDK's
// user client does not wrap. A wrong password is answered with a 422 API error.
func (b *sdkBackend) VerifyPassword(ctx context.Context, id, password string) error {
	path, err := clerk.JoinPath("/users", id, "verify_password")
	if err != nil {
		return err
	}
	req := clerk.NewAPIRequest(http.MethodPost, path)
	req.SetParams(&verifyPasswordParams{Password: password})
	res := &passwordVerification{}
	if err := b.users.Backend.Call(ctx, req, res); err != nil {
		return err
	}
	if !res.Verified {
		return errPasswordNotVerified
	}
	return nil
}

func (b *sdkBackend) UpdateMetadata(ctx context.Context, id string, params *user.UpdateMetadataParams) (*clerk.User, error) {
	return b.users.UpdateMetadata(ctx, id, params)
}

func (b *sdkBackend) UpdateUser(ctx context.Context, id string, params *user.UpdateParams) (*clerk.User, error) {
	return b.users.Update(ctx, id, params)
}

func (b *sdkBackend) VerifyEmailAddress(ctx context.Context, emailAddressID string) error {
	_, err := b.emails.Update(ctx, emailAddressID, &emailaddress.UpdateParams{Verified: clerk.Bool(true)})
	return err
}
