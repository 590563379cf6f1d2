package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/notify"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
	"github.com/sponsorlink/sponsorlink-web/internal/testutil"
)

type stubResolver struct {
	res   service.Resolution
	block bool
}

func (s *stubResolver) Resolve(ctx context.Context, _ string) service.Resolution {
	if s.block {
		<-ctx.Done()
		return service.Resolution{Snapshot: profile.PendingSnapshot()}
	}
	return s.res
}

func (s *stubResolver) Fresh(_ context.Context, _ domainauth.Session) profile.Snapshot {
	return s.res.Snapshot
}

type recordingEnder struct {
	mu    sync.Mutex
	ended []string
	err   error
}

func (e *recordingEnder) SignOut(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended = append(e.ended, id)
	return e.err
}

type recordingNotifier struct {
	ch chan notify.AccountAlertPayload
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan notify.AccountAlertPayload, 4)}
}

func (n *recordingNotifier) Notify(_ context.Context, p notify.AccountAlertPayload) bool {
	n.ch <- p
	return true
}

type gateHarness struct {
	gate     *Gate
	resolver *stubResolver
	ender    *recordingEnder
	alerts   *recordingNotifier
	metrics  *statsd.Recorder
	nextHits int
	visitor  Visitor
}

func newGateHarness(res service.Resolution, guard gate.Guard) *gateHarness {
	h := &gateHarness{
		resolver: &stubResolver{res: res},
		ender:    &recordingEnder{},
		alerts:   newRecordingNotifier(),
		metrics:  &statsd.Recorder{},
	}
	h.gate = &Gate{
		Guard:    guard,
		Oracle:   h.resolver,
		Sessions: h.ender,
		Alerts:   h.alerts,
		Metrics:  h.metrics,
		Waiting: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("waiting"))
		}),
		Now: testutil.FixedTimeFunc(testutil.TestTime()),
	}
	return h
}

func (h *gateHarness) serve(r *http.Request, rule PageRule) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.nextHits++
		h.visitor, _ = VisitorFromContext(r.Context())
		_, _ = w.Write([]byte("page"))
	})
	rec := httptest.NewRecorder()
	h.gate.Page(rule)(next).ServeHTTP(rec, r)
	return rec
}

func signedInResolution(snap profile.Snapshot) service.Resolution {
	return service.Resolution{
		Session:    domainauth.Session{ID: "sess-1", UserID: snap.UserID, Email: snap.Email},
		HasSession: true,
		Snapshot:   snap,
	}
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func withSession(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	return r
}

var organizerPage = PageRule{Name: "organizer-home", Requirements: gate.ForRoles(profile.RoleOrganizer)}

func TestGate_RendersReadyVisitor(t *testing.T) {
	snap := testutil.NewSnapshot().CompleteOrganizer().Build()
	h := newGateHarness(signedInResolution(snap), gate.Guard{})

	r := withSession(httptest.NewRequest(http.MethodGet, "/organizer/home", nil))
	r.AddCookie(&http.Cookie{Name: gateHopsCookie, Value: "2"})
	rec := h.serve(r, organizerPage)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "page", rec.Body.String())
	assert.Equal(t, 1, h.nextHits)
	assert.True(t, h.visitor.State.Is(profile.KindReady))
	assert.Equal(t, profile.RoleOrganizer, h.visitor.State.Role)

	hops := responseCookie(rec, gateHopsCookie)
	require.NotNil(t, hops, "hop counter should be reset on render")
	assert.Negative(t, hops.MaxAge)

	samples := h.metrics.Named("gate.decision")
	require.Len(t, samples, 1)
	assert.Equal(t, "render", samples[0].Tags["action"])
	assert.Equal(t, "Ready", samples[0].Tags["state"])
}

func TestGate_WaitsWhileLoading(t *testing.T) {
	h := newGateHarness(service.Resolution{Snapshot: profile.PendingSnapshot()}, gate.Guard{MaxWait: 10 * time.Second})

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/organizer/home", nil), organizerPage)

	assert.Equal(t, "waiting", rec.Body.String())
	assert.Zero(t, h.nextHits)
	since := responseCookie(rec, gateWaitCookie)
	require.NotNil(t, since)
	assert.Equal(t, strconv.FormatInt(testutil.TestTime().UnixMilli(), 10), since.Value)
}

func TestGate_WaitKeepsFirstTimestamp(t *testing.T) {
	h := newGateHarness(service.Resolution{Snapshot: profile.PendingSnapshot()}, gate.Guard{MaxWait: 10 * time.Second})

	r := httptest.NewRequest(http.MethodGet, "/organizer/home", nil)
	started := testutil.TestTime().Add(-3 * time.Second)
	r.AddCookie(&http.Cookie{Name: gateWaitCookie, Value: strconv.FormatInt(started.UnixMilli(), 10)})
	rec := h.serve(r, organizerPage)

	assert.Equal(t, "waiting", rec.Body.String())
	assert.Nil(t, responseCookie(rec, gateWaitCookie))
}

func TestGate_WaitExpiredSignsOut(t *testing.T) {
	snap := profile.PendingSnapshot()
	res := service.Resolution{Session: domainauth.Session{ID: "sess-1"}, HasSession: true, Snapshot: snap}
	h := newGateHarness(res, gate.Guard{MaxWait: 10 * time.Second})

	r := withSession(httptest.NewRequest(http.MethodGet, "/organizer/home", nil))
	started := testutil.TestTime().Add(-30 * time.Second)
	r.AddCookie(&http.Cookie{Name: gateWaitCookie, Value: strconv.FormatInt(started.UnixMilli(), 10)})
	rec := h.serve(r, organizerPage)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	assert.Equal(t, []string{"sess-1"}, h.ender.ended)

	session := responseCookie(rec, SessionCookieName)
	require.NotNil(t, session)
	assert.Negative(t, session.MaxAge)
}

func TestGate_SignedOutGoesToLoginAndRemembersTarget(t *testing.T) {
	h := newGateHarness(service.Resolution{Snapshot: profile.SignedOutSnapshot()}, gate.Guard{})

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/organizer/home?tab=projects", nil), organizerPage)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	target := responseCookie(rec, postLoginCookie)
	require.NotNil(t, target)
	assert.Equal(t, "/organizer/home?tab=projects", target.Value)
	hops := responseCookie(rec, gateHopsCookie)
	require.NotNil(t, hops)
	assert.Equal(t, "1", hops.Value)
}

func TestGate_SignedOutAPICallerGets401(t *testing.T) {
	h := newGateHarness(service.Resolution{Snapshot: profile.SignedOutSnapshot()}, gate.Guard{})

	r := httptest.NewRequest(http.MethodGet, "/organizer/home", nil)
	r.Header.Set("Accept", "application/json")
	rec := h.serve(r, organizerPage)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.JSONEq(t, `{"error":"unauthorized","message":"sign in required"}`, rec.Body.String())
	assert.Nil(t, responseCookie(rec, postLoginCookie))
	assert.Nil(t, responseCookie(rec, gateHopsCookie))
}

func TestGate_APICallerWithWrongRoleStillRedirects(t *testing.T) {
	snap := testutil.NewSnapshot().CompleteSponsor().Build()
	h := newGateHarness(signedInResolution(snap), gate.Guard{})

	r := withSession(httptest.NewRequest(http.MethodGet, "/organizer/home", nil))
	r.Header.Set("Accept", "application/json")
	rec := h.serve(r, organizerPage)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sponsor/home", rec.Header().Get("Location"))
}

func TestGate_StaleSessionCookieIsCleared(t *testing.T) {
	h := newGateHarness(service.Resolution{Snapshot: profile.SignedOutSnapshot()}, gate.Guard{})

	rec := h.serve(withSession(httptest.NewRequest(http.MethodGet, "/", nil)), PageRule{Requirements: gate.Public()})

	assert.Equal(t, "page", rec.Body.String())
	session := responseCookie(rec, SessionCookieName)
	require.NotNil(t, session)
	assert.Negative(t, session.MaxAge)
}

func TestGate_RoleMismatchGoesHome(t *testing.T) {
	snap := testutil.NewSnapshot().CompleteSponsor().Build()
	h := newGateHarness(signedInResolution(snap), gate.Guard{})

	rec := h.serve(withSession(httptest.NewRequest(http.MethodGet, "/organizer/home", nil)), organizerPage)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sponsor/home", rec.Header().Get("Location"))
	assert.Nil(t, responseCookie(rec, postLoginCookie))
}

func TestGate_HTMXNavigationUsesHeader(t *testing.T) {
	h := newGateHarness(service.Resolution{Snapshot: profile.SignedOutSnapshot()}, gate.Guard{})

	r := httptest.NewRequest(http.MethodGet, "/organizer/home", nil)
	r.Header.Set("Hx-Request", "true")
	rec := h.serve(r, organizerPage)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Hx-Redirect"))
}

func TestGate_HopLimitBreaksLoops(t *testing.T) {
	h := newGateHarness(service.Resolution{Snapshot: profile.SignedOutSnapshot()}, gate.Guard{MaxHops: 3})

	r := httptest.NewRequest(http.MethodGet, "/organizer/home", nil)
	r.AddCookie(&http.Cookie{Name: gateHopsCookie, Value: "3"})
	rec := h.serve(r, organizerPage)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/account-error", rec.Header().Get("Location"))
}

func TestGate_GuestOnlyPageSendsSignedInToHub(t *testing.T) {
	snap := testutil.NewSnapshot().CompleteSponsor().Build()
	h := newGateHarness(signedInResolution(snap), gate.Guard{})

	rec := h.serve(withSession(httptest.NewRequest(http.MethodGet, "/auth/login", nil)),
		PageRule{Requirements: gate.Public(), GuestOnly: true})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, HubPath, rec.Header().Get("Location"))
	assert.Zero(t, h.nextHits)
}

func TestGate_CorruptAccountIsReported(t *testing.T) {
	snap := testutil.NewSnapshot().WithField(profile.FieldCompanyName, "Acme").Build()
	h := newGateHarness(signedInResolution(snap), gate.Guard{})

	rec := h.serve(withSession(httptest.NewRequest(http.MethodGet, "/organizer/home", nil)), organizerPage)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/account-error", rec.Header().Get("Location"))

	select {
	case payload := <-h.alerts.ch:
		assert.Equal(t, snap.UserID, payload.UserID)
		assert.Equal(t, "/organizer/home", payload.Path)
		assert.Equal(t, "Corrupt", payload.State)
		assert.NotEmpty(t, payload.Fingerprint)
	case <-time.After(time.Second):
		t.Fatal("expected a corrupt account alert")
	}
}

func TestGate_CancelledRequestWritesNothing(t *testing.T) {
	h := newGateHarness(service.Resolution{}, gate.Guard{})
	h.resolver.block = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodGet, "/organizer/home", nil).WithContext(ctx)
	rec := h.serve(r, organizerPage)

	assert.Zero(t, h.nextHits)
	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, rec.Header())
	assert.Empty(t, h.metrics.Samples())
}

func TestGate_SignOutFailureStillClearsCookie(t *testing.T) {
	res := service.Resolution{Session: domainauth.Session{ID: "sess-1"}, HasSession: true, Snapshot: profile.PendingSnapshot()}
	h := newGateHarness(res, gate.Guard{MaxWait: time.Second})
	h.ender.err = errors.New("redis down")

	r := withSession(httptest.NewRequest(http.MethodGet, "/organizer/home", nil))
	r.AddCookie(&http.Cookie{Name: gateWaitCookie, Value: strconv.FormatInt(testutil.TestTime().Add(-time.Minute).UnixMilli(), 10)})
	rec := h.serve(r, organizerPage)

	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	session := responseCookie(rec, SessionCookieName)
	require.NotNil(t, session)
	assert.Negative(t, session.MaxAge)
}
