package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

func TestRouter_Health(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.get("/healthz")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body)
}

func TestRouter_LandingAndNotFound(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.get("/")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Sponsorlink")
	assert.Equal(t, "no-store", res.Header.Get("Cache-Control"))

	res = b.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, res.Body, "404")

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/no/such/page", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	res = b.do(req)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Contains(t, res.Body, "not_found")
}

func TestRouter_StaticAssetsCacheHeaders(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.get("/static/css/app.css")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "no-cache", res.Header.Get("Cache-Control"))

	res = b.get("/static/css/app.css?v=abc123")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Header.Get("Cache-Control"), "immutable")
}

func TestRouter_AuthStatus(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	var body authStatus
	res := b.get("/auth/status")
	require.Equal(t, http.StatusOK, res.Status)
	require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
	assert.False(t, body.Authenticated)
	assert.Equal(t, "SignedOut", body.State)

	user := f.createUser(t, "sam@acme.com", sponsorMeta())
	b.signIn(user)
	res = b.get("/auth/status")
	require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
	assert.True(t, body.Authenticated)
	assert.Equal(t, "sponsor", body.Role)
	assert.True(t, body.EmailVerified)
	assert.Equal(t, "/sponsor/home", body.Home)
}

func TestRouter_SignedOutVisitorReturnsAfterLogin(t *testing.T) {
	f := newAppFixture(t)
	f.createUser(t, "ada@uom.lk", organizerMeta())
	b := f.browser(t)

	res := b.get("/organizer/profile")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/login", res.Location)

	res = b.get("/auth/login")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `name="csrf_token"`)

	res = b.post("/auth/login", url.Values{"email": {"ada@uom.lk"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/organizer/profile", res.Location)
	assert.NotEmpty(t, b.cookie(SessionCookieName))
	assert.Empty(t, b.cookie(postLoginCookie))

	res = b.get("/organizer/profile")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Robotics Club")
}

func TestRouter_LoginRefusals(t *testing.T) {
	f := newAppFixture(t)
	f.createUser(t, "ada@uom.lk", organizerMeta())
	b := f.browser(t)

	res := b.post("/auth/login", url.Values{"email": {"ada@uom.lk"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "Incorrect email or password")
	assert.Contains(t, res.Body, `value="ada@uom.lk"`)

	res = b.post("/auth/login", url.Values{"email": {"nobody@uom.lk"}, "password": {"whatever-password"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "Incorrect email or password")

	res = b.post("/auth/login", url.Values{"email": {""}, "password": {"x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "Email is required")
}

func TestRouter_HTMXValidationErrorsAnswerOK(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.postHTMX("/auth/login", url.Values{"email": {"nobody@uom.lk"}, "password": {"whatever-password"}})
	assert.Equal(t, http.StatusOK, res.Status)
	assert.True(t, strings.HasPrefix(res.Body, "<title>"), "partial should lead with a title")
	assert.Contains(t, res.Body, "Incorrect email or password")
	assert.NotContains(t, res.Body, "<html")
}

func TestRouter_CSRFRejected(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/auth/login", strings.NewReader("email=a%40b.com"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := b.do(req)
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Contains(t, res.Body, "Your form expired")
}

func TestRouter_SignupVerifyAndCompleteProfile(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.get("/auth/signup?role=sponsor")
	require.Equal(t, http.StatusOK, res.Status)

	res = b.post("/auth/signup", url.Values{
		"role":             {"sponsor"},
		"first_name":       {"Sam"},
		"last_name":        {"Lee"},
		"email":            {"sam@acme.com"},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/verify-email", res.Location)

	// Unverified users are held on the verify page.
	res = b.get("/sponsor/home")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/verify-email", res.Location)

	res = b.get("/auth/verify-email")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "sam@acme.com")

	res = b.post("/auth/verify-email", url.Values{"code": {"000000"}})
	if res.Status != http.StatusSeeOther {
		assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
		assert.Contains(t, res.Body, "Invalid code")
	}

	msg, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, ports.PurposeEmailVerification, msg.Purpose)
	res = b.post("/auth/verify-email", url.Values{"code": {msg.Code}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, HubPath, res.Location)

	// The hub sends an incomplete sponsor to onboarding.
	res = b.get(HubPath)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/complete-profile", res.Location)

	res = b.get("/auth/complete-profile")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `name="companyName"`)

	res = b.post("/auth/complete-profile", url.Values{"companyName": {"Acme"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "All fields are required")

	res = b.post("/auth/complete-profile", url.Values{
		"companyName":            {"Acme"},
		"companyDescription":     {"Widgets"},
		"sponsorshipPreferences": {"Tech events"},
	})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/sponsor/home", res.Location)

	res = b.get("/sponsor/home")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Welcome back, Sam")
	assert.Contains(t, res.Body, "Acme")

	// Sponsors are sent home from organizer pages.
	res = b.get("/organizer/home")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/sponsor/home", res.Location)
}

func TestRouter_SignupRefusals(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.post("/auth/signup", url.Values{
		"role":             {"organizer"},
		"first_name":       {"Ada"},
		"last_name":        {"Lovelace"},
		"email":            {"ada@gmail.com"},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "Organizers must use @uom.lk email address")
	assert.Contains(t, res.Body, `value="Ada"`)
	assert.NotContains(t, res.Body, testPassword)

	res = b.post("/auth/signup", url.Values{
		"role":             {"sponsor"},
		"first_name":       {"Sam"},
		"last_name":        {"Lee"},
		"email":            {"sam@acme.com"},
		"password":         {testPassword},
		"confirm_password": {"something-else"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "Passwords do not match")
}

func TestRouter_CompleteProfileOrganizerDomain(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)
	user := f.createUser(t, "sam@gmail.com", nil)
	b.signIn(user)

	res := b.post("/auth/complete-profile", url.Values{
		"role":             {"organizer"},
		"organizationName": {"Robotics Club"},
		"officialTitle":    {"President"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "Organizers must use @uom.lk email address")

	got, err := f.idp.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Metadata[profile.MetadataKeyRole])
}

func TestRouter_GuestPagesSendSignedInToHub(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)
	b.signIn(f.createUser(t, "ada@uom.lk", organizerMeta()))

	for _, path := range []string{"/auth/login", "/auth/signup"} {
		res := b.get(path)
		require.Equal(t, http.StatusSeeOther, res.Status, path)
		assert.Equal(t, HubPath, res.Location, path)
	}

	res := b.get(HubPath)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/organizer/home", res.Location)
}

func TestRouter_Logout(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)
	b.signIn(f.createUser(t, "ada@uom.lk", organizerMeta()))
	require.Equal(t, 1, f.sessions.Len())

	res := b.post("/auth/logout", nil)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/login", res.Location)
	assert.Zero(t, f.sessions.Len())
	assert.Empty(t, b.cookie(SessionCookieName))

	res = b.get("/auth/login")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "You have been signed out.")

	// The notice is shown once.
	res = b.get("/auth/login")
	assert.NotContains(t, res.Body, "You have been signed out.")
}

func TestRouter_RoleProfileEdit(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)
	b.signIn(f.createUser(t, "ada@uom.lk", organizerMeta()))

	res := b.get("/organizer/profile?edit=1")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `name="organizationName"`)

	res = b.post("/organizer/profile", url.Values{"organizationName": {"Chess Club"}, "officialTitle": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "All fields are required")

	res = b.post("/organizer/profile", url.Values{
		"organizationName": {"Chess Club"},
		"officialTitle":    {"Secretary"},
		"bio":              {"Moves pieces"},
	})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/organizer/profile", res.Location)

	res = b.get("/organizer/profile")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Profile updated successfully!")
	assert.Contains(t, res.Body, "Chess Club")
	assert.Contains(t, res.Body, "Moves pieces")

	res = b.get("/organizer/home")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Secretary")
}

func TestRouter_CorruptAccountIsRoutedAndReported(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)
	user := f.createUser(t, "ghost@acme.com", map[string]string{profile.FieldCompanyName: "Acme"})
	b.signIn(user)

	res := b.get("/sponsor/home")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/account-error", res.Location)

	select {
	case payload := <-f.alerts.ch:
		assert.Equal(t, user.ID, payload.UserID)
		assert.Equal(t, "ghost@acme.com", payload.Email)
	case <-time.After(time.Second):
		t.Fatal("expected a corrupt account alert")
	}

	res = b.get("/auth/account-error")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "Account Error")
	assert.Contains(t, res.Body, "support@sponsorlink.com")
}

func TestRouter_ForgotAndResetPassword(t *testing.T) {
	f := newAppFixture(t)
	f.createUser(t, "sam@acme.com", sponsorMeta())
	b := f.browser(t)

	res := b.get("/auth/reset-password")
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/forgot-password", res.Location)

	res = b.post("/auth/forgot-password", url.Values{"email": {"nobody@acme.com"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Contains(t, res.Body, "No account found with this email address")

	res = b.post("/auth/forgot-password", url.Values{"email": {"sam@acme.com"}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/reset-password", res.Location)

	res = b.get("/auth/reset-password")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, "We sent a password reset code to your email.")

	msg, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, ports.PurposePasswordReset, msg.Purpose)

	res = b.post("/auth/reset-password", url.Values{
		"code":             {msg.Code},
		"password":         {"a-brand-new-secret"},
		"confirm_password": {"a-brand-new-secret"},
	})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, HubPath, res.Location)
	assert.NotEmpty(t, b.cookie(SessionCookieName))
	assert.Empty(t, b.cookie(resetEmailCookie))

	_, err := f.idp.FindUserByEmail(context.Background(), "sam@acme.com")
	require.NoError(t, err)

	// The new password works from a fresh browser.
	other := f.browser(t)
	res = other.post("/auth/login", url.Values{"email": {"sam@acme.com"}, "password": {"a-brand-new-secret"}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, HubPath, res.Location)
}

func TestRouter_ResendCodeHTMXToast(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.post("/auth/signup", url.Values{
		"role":             {"sponsor"},
		"first_name":       {"Sam"},
		"last_name":        {"Lee"},
		"email":            {"sam@acme.com"},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, res.Status)
	before := len(f.sender.Sent())

	res = b.postHTMX("/auth/verify-email/resend", nil)
	assert.Equal(t, http.StatusNoContent, res.Status)
	assert.Contains(t, res.Header.Get("Hx-Trigger"), "showToast")
	assert.Len(t, f.sender.Sent(), before+1)
}

func TestRouter_SSO(t *testing.T) {
	f := newAppFixture(t)
	b := f.browser(t)

	res := b.get("/auth/sso/login?redirect_uri=/sponsor/profile")
	require.Equal(t, http.StatusFound, res.Status)
	assert.True(t, strings.HasPrefix(res.Location, "https://mock-idp/auth"))
	state := b.cookie(oauthStateCookie)
	require.NotEmpty(t, state)
	require.NotEmpty(t, b.cookie(oauthNonceCookie))

	res = b.get("/auth/sso/callback?code=abc&state=forged")
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Contains(t, res.Body, "Login failed")

	res = b.get("/auth/sso/callback?code=abc&state=" + url.QueryEscape(state))
	require.Equal(t, http.StatusSeeOther, res.Status)
	// First SSO login creates a verified user without a role.
	assert.Equal(t, "/auth/complete-profile", res.Location)
	assert.Empty(t, b.cookie(oauthStateCookie))

	res = b.get("/auth/complete-profile")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `href="/auth/complete-profile?role=organizer"`)
	assert.Contains(t, res.Body, `href="/auth/complete-profile?role=sponsor"`)
	assert.NotContains(t, res.Body, `name="organizationName"`)

	// The hub (and the brand link pointing at it) onboards a new user
	// instead of treating the missing role as corruption.
	res = b.get(HubPath)
	require.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/auth/complete-profile", res.Location)
	select {
	case p := <-f.alerts.ch:
		t.Fatalf("unexpected support alert for %s", p.UserID)
	case <-time.After(50 * time.Millisecond):
	}

	res = b.get("/auth/complete-profile?role=organizer")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, `name="organizationName"`)
}

func TestRouter_SSODisabled(t *testing.T) {
	f := newAppFixture(t, withoutSSO())
	b := f.browser(t)

	res := b.get("/auth/sso/login")
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = b.get("/auth/login")
	assert.NotContains(t, res.Body, "/auth/sso/login")
}
