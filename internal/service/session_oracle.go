package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/metrics"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// SessionOracleConfig tunes snapshot fetching.
type SessionOracleConfig struct {
	// FetchTimeout bounds a single identity fetch. Zero means 3s.
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// SessionOracleOptions groups dependencies for SessionOracle.
type SessionOracleOptions struct {
	Identity ports.IdentityProvider
	Sessions ports.SessionStore
	Config   SessionOracleConfig
}

// SessionOracle answers "who is this browser and what do we know about
// them" for every request. Snapshots are never cached: concurrent fetches
// for the same user share one provider call and nothing outlives it.
type SessionOracle struct {
	identity ports.IdentityProvider
	sessions ports.SessionStore
	timeout  time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
	flight   singleflight.Group
	now      func() time.Time
}

// NewSessionOracle constructs a SessionOracle.
func NewSessionOracle(opts SessionOracleOptions) *SessionOracle {
	if opts.Identity == nil {
		panic("IdentityProvider is required")
	}
	if opts.Sessions == nil {
		panic("SessionStore is required")
	}
	timeout := opts.Config.FetchTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionOracle{
		identity: opts.Identity,
		sessions: opts.Sessions,
		timeout:  timeout,
		logger:   logger.With("component", "session_oracle"),
		metrics:  opts.Config.Metrics,
		now:      time.Now,
	}
}

// Resolution is the outcome of resolving a session cookie.
type Resolution struct {
	Session    domainauth.Session
	HasSession bool
	Snapshot   profile.Snapshot
}

// Resolve loads the session and a fresh identity snapshot. It never fails:
// an unknown or expired session is SignedOut, while store or provider
// failures produce a not-loaded snapshot so the guard waits.
func (o *SessionOracle) Resolve(ctx context.Context, sessionID string) Resolution {
	if sessionID == "" {
		return Resolution{Snapshot: profile.SignedOutSnapshot()}
	}

	sess, err := o.sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, ports.ErrSessionNotFound):
		return Resolution{Snapshot: profile.SignedOutSnapshot()}
	case err != nil:
		o.logger.WarnContext(ctx, "session lookup failed", "error", err)
		return Resolution{Snapshot: profile.PendingSnapshot()}
	case sess.Expired(o.now()):
		return Resolution{Snapshot: profile.SignedOutSnapshot()}
	}

	return Resolution{Session: sess, HasSession: true, Snapshot: o.Snapshot(ctx, sess)}
}

// Snapshot fetches the identity facts for an established session.
func (o *SessionOracle) Snapshot(ctx context.Context, sess domainauth.Session) profile.Snapshot {
	ch := o.flight.DoChan(sess.UserID, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()
		return o.fetch(fetchCtx, sess.UserID)
	})

	select {
	case <-ctx.Done():
		return profile.PendingSnapshot()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, ports.ErrUserNotFound) {
				return profile.Snapshot{AuthLoaded: true, ProfileLoaded: true, SignedIn: true, UserID: sess.UserID, Email: sess.Email}
			}
			o.logger.WarnContext(ctx, "identity fetch failed", "user_id", sess.UserID, "error", res.Err)
			return profile.PendingSnapshot()
		}
		user, _ := res.Val.(ports.User)
		return SnapshotFromUser(user)
	}
}

// Fresh discards any in-flight fetch for the session's user and fetches
// again, so reads issued after a mutation observe it.
func (o *SessionOracle) Fresh(ctx context.Context, sess domainauth.Session) profile.Snapshot {
	o.flight.Forget(sess.UserID)
	return o.Snapshot(ctx, sess)
}

func (o *SessionOracle) fetch(ctx context.Context, userID string) (ports.User, error) {
	start := o.now()
	user, err := o.identity.GetUser(ctx, userID)

	result := metrics.ResultSuccess
	if err != nil && !errors.Is(err, ports.ErrUserNotFound) {
		result = metrics.ResultError
	}
	metrics.EmitOracleFetch(o.metrics, metrics.OracleFetch{Result: result, Duration: o.now().Sub(start), Err: err})

	if err != nil {
		return ports.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}

// SnapshotFromUser maps a provider user onto the identity snapshot the
// classifier reads. Unknown role values read as no role.
func SnapshotFromUser(u ports.User) profile.Snapshot {
	role, _ := profile.ParseRole(u.Metadata[profile.MetadataKeyRole])

	fields := make(map[string]string, len(u.Metadata))
	for k, v := range u.Metadata {
		if k != profile.MetadataKeyRole {
			fields[k] = v
		}
	}

	return profile.Snapshot{
		AuthLoaded:    true,
		ProfileLoaded: true,
		SignedIn:      true,
		UserPresent:   true,
		EmailVerified: u.EmailVerified,
		Role:          role,
		RoleFields:    fields,
		UserID:        u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
	}
}
