package service

import (
	"context"
	"log/slog"
	"strings"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	apperrors "github.com/sponsorlink/sponsorlink-web/internal/errors"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/metrics"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// Messages shown on the profile forms.
const (
	MsgAllFieldsRequired = "All fields are required"
	MsgSelectRole        = "Please select a role"
	MsgProfileSaveFailed = "Failed to update profile. Please try again."
)

// ProfileServiceOptions groups dependencies for ProfileService.
type ProfileServiceOptions struct {
	Identity ports.IdentityProvider
	Oracle   *SessionOracle
	Metrics  statsd.Sink
	Logger   *slog.Logger
	// OrganizerDomain restricts which emails may pick the organizer role
	// after signing in without one.
	OrganizerDomain string
}

// ProfileService saves role profiles into the identity provider's metadata.
type ProfileService struct {
	identity ports.IdentityProvider
	oracle   *SessionOracle
	metrics  statsd.Sink
	logger   *slog.Logger
	domain   string
}

// NewProfileService constructs a ProfileService.
func NewProfileService(opts ProfileServiceOptions) *ProfileService {
	if opts.Identity == nil || opts.Oracle == nil {
		panic("IdentityProvider and SessionOracle are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		identity: opts.Identity,
		oracle:   opts.Oracle,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "profile"),
		domain:   strings.ToLower(strings.Trim(strings.TrimSpace(opts.OrganizerDomain), "@.")),
	}
}

// SubmitResult is the profile state after a successful save.
type SubmitResult struct {
	State    profile.State
	Snapshot profile.Snapshot
}

// Submit validates and saves the profile of role for the session's user,
// then re-reads the user and classifies the result. The role and its
// fields are written together in one metadata update; fields owned by the
// other role are left alone.
func (s *ProfileService) Submit(ctx context.Context, sess domainauth.Session, rawRole string, fields map[string]string) (res SubmitResult, err error) {
	role, ok := profile.ParseRole(rawRole)
	defer func() {
		result := metrics.ResultSuccess
		switch {
		case apperrors.IsValidation(err) || apperrors.IsUnauthorized(err):
			result = metrics.ResultRefused
		case err != nil:
			result = metrics.ResultError
		}
		state := ""
		if err == nil {
			state = res.State.Kind.String()
		}
		metrics.EmitProfileSubmit(s.metrics, metrics.ProfileSubmit{Role: role.String(), Result: result, State: state, Err: err})
	}()

	if !ok {
		return SubmitResult{}, apperrors.ValidationField("role", MsgSelectRole)
	}

	current := s.oracle.Fresh(ctx, sess)
	switch {
	case !current.AuthLoaded:
		return SubmitResult{}, &apperrors.AppError{Code: apperrors.ErrCodeUnavailable, Message: MsgProfileSaveFailed}
	case !current.SignedIn || !current.UserPresent || !current.EmailVerified:
		return SubmitResult{}, apperrors.Unauthorized("verified session required")
	case current.Role.Valid() && current.Role != role:
		return SubmitResult{}, apperrors.ValidationField("role", "Your role cannot be changed")
	case !current.Role.Valid() && role == profile.RoleOrganizer && !emailInDomain(current.Email, s.domain):
		return SubmitResult{}, apperrors.ValidationField("role", "Organizers must use @"+s.domain+" email address")
	}

	cleaned := make(map[string]string, len(profile.Fields(role)))
	for _, key := range profile.Fields(role) {
		cleaned[key] = strings.TrimSpace(fields[key])
	}
	if missing := profile.MissingFields(role, cleaned); len(missing) > 0 {
		return SubmitResult{}, apperrors.ValidationField(missing[0], MsgAllFieldsRequired)
	}

	patch := make(map[string]string, len(cleaned)+1)
	for k, v := range cleaned {
		patch[k] = v
	}
	patch[profile.MetadataKeyRole] = string(role)

	if _, err := s.identity.UpdateMetadata(ctx, sess.UserID, patch); err != nil {
		s.logger.ErrorContext(ctx, "profile write failed", "user_id", sess.UserID, "role", role, "error", err)
		return SubmitResult{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, MsgProfileSaveFailed)
	}

	snap := s.oracle.Fresh(ctx, sess)
	return SubmitResult{State: profile.Classify(snap), Snapshot: snap}, nil
}
