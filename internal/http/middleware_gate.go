package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/metrics"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/notify"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
)

const (
	gateWaitCookie = "gate_wait_since"
	gateHopsCookie = "gate_hops"

	gateWaitCookieLifetime = 60
	gateHopsCookieLifetime = 30

	corruptAlertTimeout = 10 * time.Second
)

var errSignInRequired = errors.New("sign in required")

// SessionEnder drops a server-side session.
type SessionEnder interface {
	SignOut(ctx context.Context, sessionID string) error
}

// CorruptNotifier reports accounts the application cannot route.
type CorruptNotifier interface {
	Notify(ctx context.Context, payload notify.AccountAlertPayload) bool
}

// PageRule describes how one page is guarded.
type PageRule struct {
	// Name tags metrics and logs, usually the route pattern.
	Name         string
	Requirements gate.Requirements
	// GuestOnly sends visitors that already hold a session to the hub.
	GuestOnly bool
}

// Gate runs the redirect guard in front of every page. Each request gets
// exactly one decision from a freshly resolved snapshot.
type Gate struct {
	Guard    gate.Guard
	Oracle   SessionResolver
	Sessions SessionEnder
	Alerts   CorruptNotifier // optional
	Metrics  statsd.Sink     // optional
	Cookies  CookieJar
	// Waiting renders the loading placeholder for Wait decisions.
	Waiting http.Handler
	Logger  *slog.Logger
	Now     func() time.Time
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Page returns middleware guarding next with rule.
func (g *Gate) Page(rule PageRule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next, rule)
		})
	}
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler, rule PageRule) {
	ctx := r.Context()
	sessionID := sessionIDFromRequest(r)
	res := g.Oracle.Resolve(ctx, sessionID)
	if ctx.Err() != nil {
		// The visitor navigated away; nobody is left to answer.
		return
	}

	if sessionID != "" && !res.HasSession && res.Snapshot.AuthLoaded {
		g.Cookies.ClearSession(w, r)
	}

	if rule.GuestOnly && res.HasSession {
		g.clearGateCookies(w, r)
		redirectTo(w, r, HubPath)
		return
	}

	state := profile.Classify(res.Snapshot)
	current, _ := gate.RouteForPath(r.URL.Path)
	action := g.Guard.Evaluate(state, rule.Requirements, gate.Visit{
		Current:      current,
		WaitingSince: g.waitingSince(r),
		Hops:         g.hops(r),
		Now:          g.now(),
	})

	metrics.EmitGateDecision(g.Metrics, metrics.GateDecision{
		Route:  rule.Name,
		State:  state.Kind.String(),
		Action: action.Kind.String(),
		Reason: string(action.Reason),
	})
	g.logger().DebugContext(ctx, "gate decision",
		"page", rule.Name,
		"state", state.String(),
		"action", action.String(),
		"reason", string(action.Reason),
	)

	if action.Reason == gate.ReasonCorrupt {
		g.reportCorrupt(ctx, r, res, state)
	}

	if action.SignOut && res.HasSession {
		g.endSession(ctx, w, r, res.Session.ID)
		res = service.Resolution{Snapshot: profile.SignedOutSnapshot()}
		state = profile.Classify(res.Snapshot)
	}

	switch action.Kind {
	case gate.ActionWait:
		if cookieValue(r, gateWaitCookie) == "" {
			g.Cookies.set(w, r, gateWaitCookie, strconv.FormatInt(g.now().UnixMilli(), 10), gateWaitCookieLifetime)
		}
		g.Waiting.ServeHTTP(w, r)

	case gate.ActionNavigate:
		if action.Target == gate.RouteLogin && !IsBrowserRequest(r) {
			// API callers cannot follow a login page.
			g.clearGateCookies(w, r)
			WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "unauthorized", Err: errSignInRequired})
			return
		}
		if action.Target == gate.RouteLogin && action.Reason == gate.ReasonSignedOut && r.Method == http.MethodGet {
			g.Cookies.set(w, r, postLoginCookie, r.URL.RequestURI(), oauthCookieLifetime)
		}
		g.Cookies.Clear(w, r, gateWaitCookie)
		g.Cookies.set(w, r, gateHopsCookie, strconv.Itoa(g.hops(r)+1), gateHopsCookieLifetime)
		redirectTo(w, r, action.Target.Path())

	default:
		g.clearGateCookies(w, r)
		ctx = SetVisitorInContext(ctx, Visitor{Resolution: res, State: state})
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (g *Gate) clearGateCookies(w http.ResponseWriter, r *http.Request) {
	if cookieValue(r, gateWaitCookie) != "" {
		g.Cookies.Clear(w, r, gateWaitCookie)
	}
	if cookieValue(r, gateHopsCookie) != "" {
		g.Cookies.Clear(w, r, gateHopsCookie)
	}
}

func (g *Gate) waitingSince(r *http.Request) time.Time {
	ms, err := strconv.ParseInt(cookieValue(r, gateWaitCookie), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (g *Gate) hops(r *http.Request) int {
	n, err := strconv.Atoi(cookieValue(r, gateHopsCookie))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (g *Gate) endSession(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID string) {
	if g.Sessions != nil {
		if err := g.Sessions.SignOut(ctx, sessionID); err != nil {
			g.logger().WarnContext(ctx, "failed to end session", "error", err)
		}
	}
	g.Cookies.ClearSession(w, r)
}

// reportCorrupt notifies support without holding up the response.
func (g *Gate) reportCorrupt(ctx context.Context, r *http.Request, res service.Resolution, state profile.State) {
	if g.Alerts == nil {
		metrics.EmitCorruptAccount(g.Metrics, false)
		return
	}
	snap := res.Snapshot
	payload := notify.AccountAlertPayload{
		UserID:      snap.UserID,
		Email:       snap.Email,
		State:       state.String(),
		Reason:      "verified account has no usable role",
		Fingerprint: snap.Fingerprint(),
		Path:        r.URL.Path,
		OccurredAt:  g.now().UTC(),
		Metadata:    map[string]string{"role": string(snap.Role)},
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), corruptAlertTimeout)
	go func() {
		defer cancel()
		g.Alerts.Notify(alertCtx, payload)
	}()
}
