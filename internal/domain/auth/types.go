package auth

// Package auth contains domain-level types for sessions and the account
// operations delegated to the identity provider.

import "time"

// Method records how a session was established.
type Method string

const (
	MethodPassword Method = "password"
	MethodSSO      Method = "sso"
)

// Identity is the principal returned by an SSO identity provider.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	ExpiresAt     time.Time
}

// Session is the server-side handle binding a browser to a provider user.
// Identity facts are never cached here; they are fetched fresh per request.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Method    Method    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// Status is the outcome tag of a successful account operation.
type Status string

const (
	// StatusComplete means the user is fully signed in.
	StatusComplete Status = "complete"
	// StatusNeedsVerification means the user is signed in but must confirm
	// their email before continuing.
	StatusNeedsVerification Status = "needs-verification"
)
