package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/metrics"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

const codeDigits = 6

// AccountDeps groups the stores and delivery channel AccountService needs.
type AccountDeps struct {
	Sessions ports.SessionStore
	Codes    ports.CodeStore
	Lockout  ports.LockoutStore
	Sender   ports.CodeSender
}

// AccountConfig tunes account flows. Zero durations and counts fall back
// to the defaults in NewAccountService.
type AccountConfig struct {
	// OrganizerDomain is the registrable email domain organizers must use.
	OrganizerDomain  string
	CodeTTL          time.Duration
	ResendCooldown   time.Duration
	MaxAttempts      int
	LockoutThreshold int
	LockoutDuration  time.Duration
	SessionTTL       time.Duration
	Logger           *slog.Logger
	Metrics          statsd.Sink
	Now              func() time.Time
}

// AccountServiceOptions groups dependencies for AccountService.
type AccountServiceOptions struct {
	Identity ports.IdentityProvider
	Deps     AccountDeps
	Config   AccountConfig
}

// AccountService runs the sign-up, sign-in, verification and password
// reset flows against the identity provider. Refusals are *auth.OpError.
type AccountService struct {
	identity ports.IdentityProvider
	sessions ports.SessionStore
	codes    ports.CodeStore
	lockout  ports.LockoutStore
	sender   ports.CodeSender
	cfg      AccountConfig
	logger   *slog.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(opts AccountServiceOptions) *AccountService {
	if opts.Identity == nil {
		panic("IdentityProvider is required")
	}
	if opts.Deps.Sessions == nil || opts.Deps.Codes == nil || opts.Deps.Lockout == nil || opts.Deps.Sender == nil {
		panic("AccountDeps are required")
	}

	cfg := opts.Config
	cfg.OrganizerDomain = strings.ToLower(strings.Trim(strings.TrimSpace(cfg.OrganizerDomain), "@."))
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.ResendCooldown < 0 {
		cfg.ResendCooldown = 0
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountService{
		identity: opts.Identity,
		sessions: opts.Deps.Sessions,
		codes:    opts.Deps.Codes,
		lockout:  opts.Deps.Lockout,
		sender:   opts.Deps.Sender,
		cfg:      cfg,
		logger:   logger.With("component", "account"),
	}
}

// AccountResult is the outcome of a successful account operation.
type AccountResult struct {
	Status  domainauth.Status
	Session domainauth.Session
	// NeedsRole is set when the signed-in user has not chosen a role yet.
	NeedsRole bool
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Role            string
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	// CurrentSessionID is the caller's existing session cookie, if any.
	CurrentSessionID string
}

// SignUp creates a user with the chosen role, signs them in and sends an
// email verification code.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (res AccountResult, err error) {
	defer s.track("sign_up", s.cfg.Now(), &err)

	if s.hasLiveSession(ctx, in.CurrentSessionID) {
		return AccountResult{}, domainauth.Fail(domainauth.CodeSessionExists, "")
	}

	role, ok := profile.ParseRole(in.Role)
	switch {
	case strings.TrimSpace(in.Role) == "":
		return AccountResult{}, domainauth.Fail(domainauth.CodeParamMissing, "role")
	case !ok:
		return AccountResult{}, domainauth.Fail(domainauth.CodeParamInvalid, "role")
	}

	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" {
		return AccountResult{}, domainauth.Fail(domainauth.CodeParamMissing, "first_name")
	}
	if last == "" {
		return AccountResult{}, domainauth.Fail(domainauth.CodeParamMissing, "last_name")
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return AccountResult{}, err
	}
	if in.ConfirmPassword != "" && in.Password != in.ConfirmPassword {
		return AccountResult{}, domainauth.Fail(domainauth.CodePasswordMismatch, "confirm_password")
	}
	if role == profile.RoleOrganizer && !s.organizerEmailAllowed(email) {
		return AccountResult{}, &domainauth.OpError{
			Code:    domainauth.CodeEmailDomainNotAllowed,
			Field:   "email",
			Message: s.cfg.OrganizerDomain,
		}
	}

	user, err := s.identity.CreateUser(ctx, ports.CreateUserInput{
		Email:     email,
		Password:  in.Password,
		FirstName: first,
		LastName:  last,
		Metadata:  map[string]string{profile.MetadataKeyRole: string(role)},
	})
	if err != nil {
		return AccountResult{}, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.startSession(ctx, user, domainauth.MethodPassword)
	if err != nil {
		return AccountResult{}, err
	}

	if err := s.issueCode(ctx, ports.PurposeEmailVerification, user.ID, user); err != nil {
		s.logger.WarnContext(ctx, "verification code not sent", "user_id", user.ID, "error", err)
	}
	return AccountResult{Status: domainauth.StatusNeedsVerification, Session: sess}, nil
}

// SignInInput is the sign-in form.
type SignInInput struct {
	Email            string
	Password         string
	CurrentSessionID string
}

// SignIn checks credentials and starts a new session, replacing any session
// the browser already had. Unverified users are sent a fresh code.
func (s *AccountService) SignIn(ctx context.Context, in SignInInput) (res AccountResult, err error) {
	defer s.track("sign_in", s.cfg.Now(), &err)

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return AccountResult{}, err
	}
	if in.Password == "" {
		return AccountResult{}, domainauth.Fail(domainauth.CodeParamMissing, "password")
	}

	lockKey := SignInLockoutKey(email)
	if until, lerr := s.lockout.LockedUntil(ctx, lockKey); lerr != nil {
		s.logger.WarnContext(ctx, "lockout lookup failed", "error", lerr)
	} else if !until.IsZero() {
		return AccountResult{}, domainauth.Fail(domainauth.CodeTooManyAttempts, "")
	}

	user, err := s.identity.FindUserByEmail(ctx, email)
	if errors.Is(err, ports.ErrUserNotFound) {
		s.recordFailure(ctx, lockKey)
		return AccountResult{}, domainauth.Fail(domainauth.CodeIdentifierNotFound, "email")
	}
	if err != nil {
		return AccountResult{}, fmt.Errorf("find user: %w", err)
	}

	if err := s.identity.VerifyPassword(ctx, user.ID, in.Password); err != nil {
		if domainauth.HasCode(err, domainauth.CodePasswordIncorrect) {
			s.recordFailure(ctx, lockKey)
		}
		return AccountResult{}, fmt.Errorf("verify password: %w", err)
	}
	if err := s.lockout.Reset(ctx, lockKey); err != nil {
		s.logger.WarnContext(ctx, "lockout reset failed", "error", err)
	}

	s.dropSession(ctx, in.CurrentSessionID)
	sess, err := s.startSession(ctx, user, domainauth.MethodPassword)
	if err != nil {
		return AccountResult{}, err
	}

	if !user.EmailVerified {
		if err := s.issueCode(ctx, ports.PurposeEmailVerification, user.ID, user); err != nil && !domainauth.HasCode(err, domainauth.CodeVerificationThrottled) {
			s.logger.WarnContext(ctx, "verification code not sent", "user_id", user.ID, "error", err)
		}
		return AccountResult{Status: domainauth.StatusNeedsVerification, Session: sess}, nil
	}
	return s.complete(sess, user), nil
}

// SignInWithIdentity signs in the provider user matching an SSO identity,
// creating one on first sight.
func (s *AccountService) SignInWithIdentity(ctx context.Context, id domainauth.Identity, currentSessionID string) (res AccountResult, err error) {
	defer s.track("sign_in_sso", s.cfg.Now(), &err)

	email, err := normalizeEmail(id.Email)
	if err != nil {
		return AccountResult{}, err
	}

	user, err := s.identity.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ports.ErrUserNotFound):
		user, err = s.identity.CreateUser(ctx, ports.CreateUserInput{
			Email:         email,
			FirstName:     id.FirstName,
			LastName:      id.LastName,
			EmailVerified: id.EmailVerified,
		})
		if err != nil {
			return AccountResult{}, fmt.Errorf("create user: %w", err)
		}
	case err != nil:
		return AccountResult{}, fmt.Errorf("find user: %w", err)
	}

	if id.EmailVerified && !user.EmailVerified {
		if err := s.identity.MarkEmailVerified(ctx, user.ID); err != nil {
			return AccountResult{}, fmt.Errorf("mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	s.dropSession(ctx, currentSessionID)
	sess, err := s.startSession(ctx, user, domainauth.MethodSSO)
	if err != nil {
		return AccountResult{}, err
	}
	if !user.EmailVerified {
		if err := s.issueCode(ctx, ports.PurposeEmailVerification, user.ID, user); err != nil {
			s.logger.WarnContext(ctx, "verification code not sent", "user_id", user.ID, "error", err)
		}
		return AccountResult{Status: domainauth.StatusNeedsVerification, Session: sess}, nil
	}
	return s.complete(sess, user), nil
}

// SignOut deletes the server-side session.
func (s *AccountService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, ports.ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SendVerificationCode issues a new email verification code for the
// session's user, subject to the resend cooldown.
func (s *AccountService) SendVerificationCode(ctx context.Context, sess domainauth.Session) (err error) {
	defer s.track("send_code", s.cfg.Now(), &err)

	user, err := s.identity.GetUser(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	return s.issueCode(ctx, ports.PurposeEmailVerification, user.ID, user)
}

// VerifyEmail checks an email verification code and marks the address
// verified on success.
func (s *AccountService) VerifyEmail(ctx context.Context, sess domainauth.Session, code string) (res AccountResult, err error) {
	defer s.track("verify_email", s.cfg.Now(), &err)

	user, err := s.identity.GetUser(ctx, sess.UserID)
	if err != nil {
		return AccountResult{}, fmt.Errorf("get user: %w", err)
	}
	if user.EmailVerified {
		return s.complete(sess, user), nil
	}

	if err := s.checkCode(ctx, ports.PurposeEmailVerification, user.ID, code); err != nil {
		return AccountResult{}, err
	}
	if err := s.identity.MarkEmailVerified(ctx, user.ID); err != nil {
		return AccountResult{}, fmt.Errorf("mark email verified: %w", err)
	}
	s.discardCode(ctx, ports.PurposeEmailVerification, user.ID)

	return s.complete(sess, user), nil
}

// RequestPasswordReset emails a reset code to the account's address.
func (s *AccountService) RequestPasswordReset(ctx context.Context, rawEmail string) (err error) {
	defer s.track("request_reset", s.cfg.Now(), &err)

	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}
	user, err := s.identity.FindUserByEmail(ctx, email)
	if errors.Is(err, ports.ErrUserNotFound) {
		return domainauth.Fail(domainauth.CodeIdentifierNotFound, "email")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	return s.issueCode(ctx, ports.PurposePasswordReset, email, user)
}

// ResetPasswordInput is the password reset form.
type ResetPasswordInput struct {
	Email            string
	Code             string
	Password         string
	ConfirmPassword  string
	CurrentSessionID string
}

// ResetPassword sets a new password using a reset code and signs the user
// in. A successful reset also proves ownership of the address.
func (s *AccountService) ResetPassword(ctx context.Context, in ResetPasswordInput) (res AccountResult, err error) {
	defer s.track("reset_password", s.cfg.Now(), &err)

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return AccountResult{}, err
	}
	if in.Password != in.ConfirmPassword {
		return AccountResult{}, domainauth.Fail(domainauth.CodePasswordMismatch, "confirm_password")
	}
	if err := s.checkCode(ctx, ports.PurposePasswordReset, email, in.Code); err != nil {
		return AccountResult{}, err
	}

	user, err := s.identity.FindUserByEmail(ctx, email)
	if errors.Is(err, ports.ErrUserNotFound) {
		s.discardCode(ctx, ports.PurposePasswordReset, email)
		return AccountResult{}, domainauth.Fail(domainauth.CodeIdentifierNotFound, "email")
	}
	if err != nil {
		return AccountResult{}, fmt.Errorf("find user: %w", err)
	}

	if err := s.identity.SetPassword(ctx, user.ID, in.Password); err != nil {
		return AccountResult{}, fmt.Errorf("set password: %w", err)
	}
	s.discardCode(ctx, ports.PurposePasswordReset, email)

	if !user.EmailVerified {
		if err := s.identity.MarkEmailVerified(ctx, user.ID); err != nil {
			s.logger.WarnContext(ctx, "mark email verified after reset failed", "user_id", user.ID, "error", err)
		} else {
			user.EmailVerified = true
		}
	}
	if err := s.lockout.Reset(ctx, SignInLockoutKey(email)); err != nil {
		s.logger.WarnContext(ctx, "lockout reset failed", "error", err)
	}

	s.dropSession(ctx, in.CurrentSessionID)
	sess, err := s.startSession(ctx, user, domainauth.MethodPassword)
	if err != nil {
		return AccountResult{}, err
	}
	if !user.EmailVerified {
		return AccountResult{Status: domainauth.StatusNeedsVerification, Session: sess}, nil
	}
	return s.complete(sess, user), nil
}

func (s *AccountService) complete(sess domainauth.Session, user ports.User) AccountResult {
	role, _ := profile.ParseRole(user.Metadata[profile.MetadataKeyRole])
	return AccountResult{Status: domainauth.StatusComplete, Session: sess, NeedsRole: !role.Valid()}
}

func (s *AccountService) hasLiveSession(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	sess, err := s.sessions.Get(ctx, id)
	return err == nil && !sess.Expired(s.cfg.Now())
}

func (s *AccountService) dropSession(ctx context.Context, id string) {
	if err := s.SignOut(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "dropping previous session failed", "error", err)
	}
}

func (s *AccountService) startSession(ctx context.Context, user ports.User, method domainauth.Method) (domainauth.Session, error) {
	now := s.cfg.Now()
	sess := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Method:    method,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *AccountService) recordFailure(ctx context.Context, key string) {
	if _, err := s.lockout.RecordFailure(ctx, key, s.cfg.LockoutThreshold, s.cfg.LockoutDuration); err != nil {
		s.logger.WarnContext(ctx, "recording sign-in failure failed", "error", err)
	}
}

// issueCode stores and delivers a new code unless one was issued within
// the resend cooldown.
func (s *AccountService) issueCode(ctx context.Context, purpose ports.CodePurpose, subject string, user ports.User) error {
	now := s.cfg.Now()
	existing, err := s.codes.Get(ctx, purpose, subject)
	switch {
	case err == nil:
		if now.Sub(existing.IssuedAt) < s.cfg.ResendCooldown {
			return domainauth.Fail(domainauth.CodeVerificationThrottled, "")
		}
	case !errors.Is(err, ports.ErrCodeNotFound):
		return fmt.Errorf("load code: %w", err)
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	otc := ports.OneTimeCode{
		Hash:      hashCode(subject, code),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
	}
	if err := s.codes.Put(ctx, purpose, subject, otc); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	msg := ports.CodeMessage{
		To:        user.Email,
		FirstName: user.FirstName,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: otc.ExpiresAt,
	}
	if err := s.sender.SendCode(ctx, msg); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// checkCode validates code against the outstanding one. Exhausted or
// expired codes are discarded.
func (s *AccountService) checkCode(ctx context.Context, purpose ports.CodePurpose, subject, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domainauth.Fail(domainauth.CodeParamMissing, "code")
	}

	stored, err := s.codes.Get(ctx, purpose, subject)
	if errors.Is(err, ports.ErrCodeNotFound) {
		return domainauth.Fail(domainauth.CodeVerificationExpired, "code")
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	if !s.cfg.Now().Before(stored.ExpiresAt) || stored.Attempts >= s.cfg.MaxAttempts {
		s.discardCode(ctx, purpose, subject)
		return domainauth.Fail(domainauth.CodeVerificationExpired, "code")
	}

	if subtle.ConstantTimeCompare([]byte(stored.Hash), []byte(hashCode(subject, code))) != 1 {
		if _, err := s.codes.RecordAttempt(ctx, purpose, subject); err != nil {
			s.logger.WarnContext(ctx, "recording code attempt failed", "error", err)
		}
		return domainauth.Fail(domainauth.CodeCodeIncorrect, "code")
	}
	return nil
}

func (s *AccountService) discardCode(ctx context.Context, purpose ports.CodePurpose, subject string) {
	if err := s.codes.Delete(ctx, purpose, subject); err != nil {
		s.logger.WarnContext(ctx, "discarding code failed", "purpose", purpose, "error", err)
	}
}

func (s *AccountService) track(op string, start time.Time, errp *error) {
	result := metrics.ResultSuccess
	var err error
	if errp != nil {
		err = *errp
	}
	if err != nil {
		result = metrics.ResultError
		if _, refused := domainauth.AsOpError(err); refused {
			result = metrics.ResultRefused
		}
	}
	metrics.EmitAccountOp(s.cfg.Metrics, metrics.AccountOp{
		Op:       op,
		Result:   result,
		Duration: s.cfg.Now().Sub(start),
		Err:      err,
	})
}

// organizerEmailAllowed reports whether email may register as an organizer.
func (s *AccountService) organizerEmailAllowed(email string) bool {
	return emailInDomain(email, s.cfg.OrganizerDomain)
}

// emailInDomain compares registrable domains, so subdomains of domain pass
// and lookalikes such as evil-uom.lk do not. An empty domain allows all.
func emailInDomain(email, domain string) bool {
	if domain == "" {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	host := strings.ToLower(email[at+1:])
	if host == domain {
		return true
	}
	if !strings.HasSuffix(host, "."+domain) {
		return false
	}
	hostReg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	wantReg, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		// The configured domain is itself a public suffix such as ac.lk.
		return true
	}
	return hostReg == wantReg
}

// SignInLockoutKey is the lockout store key guarding password sign-in for email.
func SignInLockoutKey(email string) string {
	return "signin:" + strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domainauth.Fail(domainauth.CodeParamMissing, "email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".") {
		return "", domainauth.Fail(domainauth.CodeParamInvalid, "email")
	}
	return email, nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func hashCode(subject, code string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(subject) + ":" + code))
	return hex.EncodeToString(sum[:])
}
