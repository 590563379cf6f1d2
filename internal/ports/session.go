package ports

import (
	"context"
	"errors"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
)

// ErrSessionNotFound is returned when a session is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
