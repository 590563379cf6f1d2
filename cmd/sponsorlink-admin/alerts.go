package main

import (
	"errors"
	"flag"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sponsorlink/sponsorlink-web/internal/bootstrap"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/notify"
)

var errNoAlertSinks = errors.New("no alert sinks configured; enable OBSERVABILITY_NOTIFICATIONS_ENABLED and a sink")

type testAlertOptions struct {
	Email string
}

func parseTestAlertFlags(args []string) (testAlertOptions, error) {
	var opts testAlertOptions
	fs := flag.NewFlagSet("send-test-alert", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Email, "email", "test@sponsorlink.invalid", "email shown in the alert")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	return opts, nil
}

// testAlertPayload carries a fresh user ID so the cooldown never swallows it.
func testAlertPayload(email string, now time.Time) notify.AccountAlertPayload {
	return notify.AccountAlertPayload{
		UserID:      "test-" + uuid.NewString(),
		Email:       email,
		State:       "Corrupt",
		Reason:      "test alert from sponsorlink-admin",
		Fingerprint: "sponsorlink-admin:test",
		Path:        "/auth/account-error",
		Severity:    notify.SeverityWarning,
		OccurredAt:  now.UTC(),
	}
}

func runSendTestAlert(cmdCtx *commandContext, args []string) error {
	opts, err := parseTestAlertFlags(args)
	if err != nil {
		return err
	}
	alerts := bootstrap.BuildAccountAlerts(cmdCtx.Logger, cmdCtx.Config.Observability.Notifications, nil)
	if !alerts.Enabled() {
		return errNoAlertSinks
	}
	if !alerts.Notify(cmdCtx.Ctx, testAlertPayload(opts.Email, time.Now())) {
		return errors.New("alert was not dispatched")
	}
	return writef(cmdCtx.Out, "test alert sent\n")
}
