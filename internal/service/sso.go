package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// SSOServiceOptions groups dependencies for SSOService.
type SSOServiceOptions struct {
	Provider ports.SSOProvider
	Accounts *AccountService
}

// SSOService runs the single sign-on flow and hands the resulting identity
// to AccountService.
type SSOService struct {
	provider ports.SSOProvider
	accounts *AccountService
}

// NewSSOService constructs a new SSOService.
func NewSSOService(opts SSOServiceOptions) *SSOService {
	return &SSOService{
		provider: opts.Provider,
		accounts: opts.Accounts,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *SSOService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
	// CurrentSessionID is replaced by the new session.
	CurrentSessionID string
}

// CompleteLogin exchanges the code for an identity and signs the matching
// user in, creating them on first login.
func (s *SSOService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (AccountResult, error) {
	if input.Code == "" {
		return AccountResult{}, errors.New("authorization code is required")
	}
	if input.State == "" {
		return AccountResult{}, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return AccountResult{}, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return AccountResult{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	return s.accounts.SignInWithIdentity(ctx, identity, input.CurrentSessionID)
}
