package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	redisadapter "github.com/sponsorlink/sponsorlink-web/internal/adapters/redis"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
	"github.com/sponsorlink/sponsorlink-web/internal/util"
)

const defaultCommandTimeout = 30 * time.Second

type inspectOptions struct {
	Email   string
	RawJSON bool
}

// userReport is what support needs to untangle an account-error ticket.
type userReport struct {
	UserID        string            `json:"user_id"`
	Email         string            `json:"email"`
	EmailVerified bool              `json:"email_verified"`
	StoredRole    string            `json:"stored_role,omitempty"`
	State         string            `json:"state"`
	Role          string            `json:"role,omitempty"`
	Missing       []string          `json:"missing_fields,omitempty"`
	Destination   string            `json:"destination"`
	Reason        string            `json:"reason"`
	Fields        map[string]string `json:"fields,omitempty"`
}

func parseInspectFlags(args []string) (inspectOptions, error) {
	var opts inspectOptions
	fs := flag.NewFlagSet("inspect-user", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Email, "email", "", "email address of the user")
	fs.BoolVar(&opts.RawJSON, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return opts, errors.New("--email is required")
	}
	return opts, nil
}

func runInspectUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseInspectFlags(args)
	if err != nil {
		return err
	}
	identity, err := identityProvider(cmdCtx)
	if err != nil {
		return err
	}
	policy, err := gate.ParseRolelessPolicy(string(cmdCtx.Config.Gate.RolelessPolicy))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	user, err := identity.FindUserByEmail(ctx, opts.Email)
	if errors.Is(err, ports.ErrUserNotFound) {
		return fmt.Errorf("no user with email %s", opts.Email)
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	return printUserReport(cmdCtx.Out, buildUserReport(user, gate.Guard{Policy: policy}), opts.RawJSON)
}

// buildUserReport classifies user and asks the guard where the post-login hub
// would send them.
func buildUserReport(user ports.User, guard gate.Guard) userReport {
	snap := service.SnapshotFromUser(user)
	state := profile.Classify(snap)

	report := userReport{
		UserID:        user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		StoredRole:    user.Metadata[profile.MetadataKeyRole],
		State:         state.Kind.String(),
		Fields:        snap.RoleFields,
	}
	if state.Role.Valid() {
		report.Role = string(state.Role)
		report.Missing = profile.MissingFields(state.Role, snap.RoleFields)
	}

	action := guard.Decide(state, gate.Dispatch(profile.Roles()...))
	report.Reason = string(action.Reason)
	switch {
	case action.IsNavigate():
		report.Destination = action.Target.Path()
	case state.Role.Valid():
		report.Destination = gate.HomeFor(state.Role).Path()
	default:
		report.Destination = "-"
	}
	return report
}

func printUserReport(w io.Writer, report userReport, rawJSON bool) error {
	if rawJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"User ID", report.UserID},
		{"Email", report.Email},
		{"Verified", fmt.Sprintf("%t", report.EmailVerified)},
		{"Stored role", orDash(report.StoredRole)},
		{"State", report.State},
		{"Missing fields", orDash(strings.Join(report.Missing, ", "))},
		{"Hub sends to", report.Destination},
		{"Reason", report.Reason},
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	keys := make([]string, 0, len(report.Fields))
	for k := range report.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writef(tw, "  %s:\t%q\n", k, report.Fields[k]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type lockoutOptions struct {
	Email  string
	DryRun bool
}

func parseLockoutFlags(args []string) (lockoutOptions, error) {
	var opts lockoutOptions
	fs := flag.NewFlagSet("clear-lockout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Email, "email", "", "email address to unlock")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "only report the lockout")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Email = strings.ToLower(strings.TrimSpace(opts.Email))
	if opts.Email == "" {
		return opts, errors.New("--email is required")
	}
	return opts, nil
}

func runClearLockout(cmdCtx *commandContext, args []string) error {
	opts, err := parseLockoutFlags(args)
	if err != nil {
		return err
	}
	client, err := connectRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer closeRedis(cmdCtx, client)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()
	store := redisadapter.NewLockoutStore(client, cmdCtx.Config.Redis.KeyPrefix+"lockout:")
	return clearLockout(ctx, cmdCtx, store, opts)
}

func clearLockout(ctx context.Context, cmdCtx *commandContext, store ports.LockoutStore, opts lockoutOptions) error {
	key := service.SignInLockoutKey(opts.Email)
	until, err := store.LockedUntil(ctx, key)
	if err != nil {
		return fmt.Errorf("read lockout: %w", err)
	}
	if until.IsZero() {
		if err := writef(cmdCtx.Out, "%s is not locked out\n", opts.Email); err != nil {
			return err
		}
	} else if err := writef(cmdCtx.Out, "%s is locked out until %s (%s left)\n",
		opts.Email, until.UTC().Format(time.RFC3339), util.FormatRemaining(until, time.Now())); err != nil {
		return err
	}
	if opts.DryRun {
		return nil
	}
	// Reset also clears the failure counter, so run it even when not locked.
	if err := store.Reset(ctx, key); err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	cmdCtx.Logger.Info("sign-in lockout cleared", "email", opts.Email)
	return nil
}

type revokeOptions struct {
	SessionID string
	Yes       bool
}

func parseRevokeFlags(args []string) (revokeOptions, error) {
	var opts revokeOptions
	fs := flag.NewFlagSet("revoke-session", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.SessionID, "id", "", "session ID (the session_id cookie value)")
	fs.BoolVar(&opts.Yes, "yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.SessionID = strings.TrimSpace(opts.SessionID)
	if opts.SessionID == "" {
		return opts, errors.New("--id is required")
	}
	return opts, nil
}

func runRevokeSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeFlags(args)
	if err != nil {
		return err
	}
	client, err := connectRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer closeRedis(cmdCtx, client)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()
	store := redisadapter.NewSessionStoreWithPrefix(client, cmdCtx.Config.Redis.KeyPrefix+"session:")
	return revokeSession(ctx, cmdCtx, store, opts)
}

func revokeSession(ctx context.Context, cmdCtx *commandContext, store ports.SessionStore, opts revokeOptions) error {
	sess, err := store.Get(ctx, opts.SessionID)
	if errors.Is(err, ports.ErrSessionNotFound) {
		return writef(cmdCtx.Out, "session %s not found or already expired\n", opts.SessionID)
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := writef(cmdCtx.Out, "session %s belongs to %s (%s), expires %s\n",
		sess.ID, sess.Email, sess.UserID, sess.ExpiresAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := confirm(cmdCtx, opts.Yes, "revoke this session"); err != nil {
		return err
	}
	if err := store.Delete(ctx, opts.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	cmdCtx.Logger.Info("session revoked", "user_id", sess.UserID)
	return nil
}
