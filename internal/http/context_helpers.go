package httpx

import (
	"context"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
)

// visitorKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type visitorKey struct{}

// Visitor is what the gate learned about the requester: the resolved
// session, the identity snapshot and its classification.
type Visitor struct {
	service.Resolution
	State profile.State
}

// SetVisitorInContext returns a child context that carries v.
func SetVisitorInContext(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, visitorKey{}, v)
}

// VisitorFromContext returns the visitor stored by the gate and whether it was present.
func VisitorFromContext(ctx context.Context) (Visitor, bool) {
	v, ok := ctx.Value(visitorKey{}).(Visitor)
	return v, ok
}

// GetSessionFromContext returns the visitor's session, or nil when signed out.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	v, ok := VisitorFromContext(ctx)
	if !ok || !v.HasSession {
		return nil
	}
	sess := v.Session
	return &sess
}
