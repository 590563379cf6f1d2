package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	mocks "github.com/sponsorlink/sponsorlink-web/internal/mocks/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

func newSSOService(t *testing.T, provider ports.SSOProvider) (*SSOService, *accountFixture) {
	t.Helper()
	f := newAccountFixture(t)
	return NewSSOService(SSOServiceOptions{Provider: provider, Accounts: f.svc}), f
}

func TestSSOService_BeginLogin(t *testing.T) {
	svc, _ := newSSOService(t, mocks.NewMockSSOProvider())

	result, err := svc.BeginLogin(context.Background(), "http://localhost:8080/auth/sso/callback")

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", result.AuthURL)
	assert.Equal(t, "state-1", result.State)
	assert.Equal(t, "nonce-1", result.Nonce)
}

func TestSSOService_BeginLogin_Errors(t *testing.T) {
	svc, _ := newSSOService(t, mocks.NewMockSSOProvider())
	_, err := svc.BeginLogin(context.Background(), "")
	require.ErrorContains(t, err, "redirect URL is required")

	failing := &mocks.MockSSOProvider{
		BeginFunc: func(context.Context, ports.BeginInput) (string, string, string, error) {
			return "", "", "", errors.New("provider error")
		},
	}
	svc, _ = newSSOService(t, failing)
	_, err = svc.BeginLogin(context.Background(), "http://x/cb")
	require.ErrorContains(t, err, "begin auth flow")
}

func TestSSOService_CompleteLogin(t *testing.T) {
	svc, f := newSSOService(t, mocks.NewMockSSOProvider())

	res, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})

	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusComplete, res.Status)
	assert.Equal(t, domainauth.MethodSSO, res.Session.Method)
	assert.True(t, res.NeedsRole)

	u, err := f.idp.FindUserByEmail(context.Background(), "mock.user@example.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
}

func TestSSOService_CompleteLogin_Validation(t *testing.T) {
	svc, _ := newSSOService(t, mocks.NewMockSSOProvider())
	ctx := context.Background()

	_, err := svc.CompleteLogin(ctx, CompleteLoginInput{State: "s", Nonce: "n"})
	require.ErrorContains(t, err, "authorization code is required")
	_, err = svc.CompleteLogin(ctx, CompleteLoginInput{Code: "c", Nonce: "n"})
	require.ErrorContains(t, err, "state parameter is required")
	_, err = svc.CompleteLogin(ctx, CompleteLoginInput{Code: "c", State: "s"})
	require.ErrorContains(t, err, "nonce parameter is required")
}

func TestSSOService_CompleteLogin_ExchangeError(t *testing.T) {
	provider := &mocks.MockSSOProvider{
		ExchangeFunc: func(context.Context, ports.ExchangeInput) (domainauth.Identity, error) {
			return domainauth.Identity{}, errors.New("nonce mismatch")
		},
	}
	svc, f := newSSOService(t, provider)

	_, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})

	require.ErrorContains(t, err, "exchange authorization code")
	assert.Zero(t, f.sessions.Len())
}
