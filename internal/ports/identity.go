package ports

// Package ports defines interfaces (hexagonal ports) between the account and
// profile services and the systems they delegate to.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned by identity providers when no user matches.
var ErrUserNotFound = errors.New("identity: user not found")

// User is the identity record held by the provider of record.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	// Metadata is the flat key/value profile store the app writes to.
	Metadata  map[string]string
	CreatedAt time.Time
}

// CreateUserInput describes a new provider user.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Metadata  map[string]string
	// EmailVerified marks the address as already confirmed (SSO sign-ups).
	EmailVerified bool
}

// IdentityProvider is the external identity service of record. Refusals
// (duplicate account, weak password, wrong password) are returned as
// *auth.OpError; unknown users as ErrUserNotFound.
type IdentityProvider interface {
	GetUser(ctx context.Context, userID string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	VerifyPassword(ctx context.Context, userID, password string) error
	// UpdateMetadata merges patch into the user's metadata in one atomic write.
	UpdateMetadata(ctx context.Context, userID string, patch map[string]string) (User, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	SetPassword(ctx context.Context, userID, password string) error
}
