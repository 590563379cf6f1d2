package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sponsorlink/sponsorlink-web/internal/adapters/devauth"
	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	mocks "github.com/sponsorlink/sponsorlink-web/internal/mocks/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
)

const testPassword = "correct-horse-battery"

// appFixture wires the real services over in-memory stores and serves the
// full router.
type appFixture struct {
	idp      *devauth.Provider
	sessions *mocks.MemorySessionStore
	sender   *mocks.RecordingSender
	sso      *mocks.MockSSOProvider
	oracle   *service.SessionOracle
	metrics  *statsd.Recorder
	alerts   *recordingNotifier
	server   *httptest.Server
}

type fixtureOption func(*RouterServices)

func withoutSSO() fixtureOption {
	return func(s *RouterServices) { s.SSO = nil }
}

func newAppFixture(t *testing.T, opts ...fixtureOption) *appFixture {
	t.Helper()
	f := &appFixture{
		idp:      devauth.NewProvider(devauth.WithBcryptCost(bcrypt.MinCost)),
		sessions: mocks.NewMemorySessionStore(),
		sender:   &mocks.RecordingSender{},
		sso:      mocks.NewMockSSOProvider(),
		metrics:  &statsd.Recorder{},
		alerts:   newRecordingNotifier(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.oracle = service.NewSessionOracle(service.SessionOracleOptions{
		Identity: f.idp,
		Sessions: f.sessions,
		Config:   service.SessionOracleConfig{Logger: logger, Metrics: f.metrics},
	})
	accounts := service.NewAccountService(service.AccountServiceOptions{
		Identity: f.idp,
		Deps: service.AccountDeps{
			Sessions: f.sessions,
			Codes:    mocks.NewMemoryCodeStore(),
			Lockout:  mocks.NewMemoryLockoutStore(),
			Sender:   f.sender,
		},
		Config: service.AccountConfig{
			OrganizerDomain:  "uom.lk",
			ResendCooldown:   0,
			LockoutThreshold: 5,
			Logger:           logger,
			Metrics:          f.metrics,
		},
	})
	profiles := service.NewProfileService(service.ProfileServiceOptions{
		Identity:        f.idp,
		Oracle:          f.oracle,
		Metrics:         f.metrics,
		Logger:          logger,
		OrganizerDomain: "uom.lk",
	})
	sso := service.NewSSOService(service.SSOServiceOptions{Provider: f.sso, Accounts: accounts})

	services := RouterServices{
		Oracle:          f.oracle,
		Accounts:        accounts,
		Profiles:        profiles,
		SSO:             sso,
		Alerts:          f.alerts,
		Metrics:         f.metrics,
		Guard:           gate.Guard{MaxWait: 10 * time.Second, MaxHops: 5},
		OrganizerDomain: "uom.lk",
		ResendCooldown:  time.Minute,
		TemplateFS:      os.DirFS(TemplatePathFromTest),
		Logger:          logger,
	}
	for _, opt := range opts {
		opt(&services)
	}

	handler, err := NewRouter(services)
	require.NoError(t, err)
	f.server = httptest.NewServer(handler)
	t.Cleanup(f.server.Close)
	return f
}

// createUser registers a verified user with the given metadata.
func (f *appFixture) createUser(t *testing.T, email string, meta map[string]string) ports.User {
	t.Helper()
	user, err := f.idp.CreateUser(context.Background(), ports.CreateUserInput{
		Email:         email,
		Password:      testPassword,
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Metadata:      meta,
		EmailVerified: true,
	})
	require.NoError(t, err)
	return user
}

func organizerMeta() map[string]string {
	return map[string]string{
		profile.MetadataKeyRole:       string(profile.RoleOrganizer),
		profile.FieldOrganizationName: "Robotics Club",
		profile.FieldOfficialTitle:    "President",
	}
}

func sponsorMeta() map[string]string {
	return map[string]string{
		profile.MetadataKeyRole:             string(profile.RoleSponsor),
		profile.FieldCompanyName:            "Acme",
		profile.FieldCompanyDescription:     "Widgets",
		profile.FieldSponsorshipPreferences: "Tech events",
	}
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	f      *appFixture
	client *http.Client
	base   *url.URL
}

func (f *appFixture) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	return &browser{
		t: t,
		f: f,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base: base,
	}
}

// signIn stores a live session for user and hands its cookie to the browser.
func (b *browser) signIn(user ports.User) domainauth.Session {
	b.t.Helper()
	sess := domainauth.Session{
		ID:        "sess-" + user.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Method:    domainauth.MethodPassword,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(b.t, b.f.sessions.Save(context.Background(), sess))
	b.client.Jar.SetCookies(b.base, []*http.Cookie{{Name: SessionCookieName, Value: sess.ID, Path: "/"}})
	return sess
}

func (b *browser) cookie(name string) string {
	for _, c := range b.client.Jar.Cookies(b.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type response struct {
	Status   int
	Location string
	Header   http.Header
	Body     string
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html")
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
		Header:   resp.Header,
		Body:     string(body),
	}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.f.server.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) getHTMX(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.f.server.URL+path, nil)
	require.NoError(b.t, err)
	req.Header.Set("Hx-Request", "true")
	return b.do(req)
}

// post submits a form, fetching a CSRF token first when needed.
func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	if b.cookie(DefaultCSRFCookieName) == "" {
		b.get("/healthz")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set(DefaultCSRFCookieName, b.cookie(DefaultCSRFCookieName))
	req, err := http.NewRequest(http.MethodPost, b.f.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postHTMX(path string, form url.Values) response {
	b.t.Helper()
	if b.cookie(DefaultCSRFCookieName) == "" {
		b.get("/healthz")
	}
	if form == nil {
		form = url.Values{}
	}
	req, err := http.NewRequest(http.MethodPost, b.f.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Hx-Request", "true")
	req.Header.Set(DefaultCSRFHeaderName, b.cookie(DefaultCSRFCookieName))
	return b.do(req)
}
