package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/http/ui/viewmodel"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
	"github.com/sponsorlink/sponsorlink-web/internal/testutil"
)

func visitorRequest(snap profile.Snapshot) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/organizer/home", nil)
	v := Visitor{
		Resolution: service.Resolution{HasSession: true, Snapshot: snap},
		State:      profile.Classify(snap),
	}
	return r.WithContext(SetVisitorInContext(r.Context(), v))
}

func TestNewTemplateData_Anonymous(t *testing.T) {
	h := &UIHandlers{}
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	data := h.NewTemplateData(httptest.NewRecorder(), r, pageMeta(PageLanding, "Welcome")).Build()

	assert.Equal(t, "Welcome - Sponsorlink", data["Title"])
	assert.Equal(t, "Welcome", data["PageTitle"])
	assert.Equal(t, PageLanding, data["CurrentPage"])
	assert.Equal(t, false, data["IsAuthenticated"])
	assert.Equal(t, false, data["SSOEnabled"])
	assert.NotContains(t, data, "User")
	assert.NotContains(t, data, "Flash")
}

func TestNewTemplateData_SignedInUser(t *testing.T) {
	h := &UIHandlers{}
	snap := testutil.NewSnapshot().CompleteOrganizer().Build()
	snap.FirstName = "Ada"

	data := h.NewTemplateData(httptest.NewRecorder(), visitorRequest(snap), pageMeta(PageOrganizerHome, "Home")).Build()

	assert.Equal(t, true, data["IsAuthenticated"])
	user, ok := data["User"].(*viewmodel.User)
	require.True(t, ok)
	assert.Equal(t, "Ada", user.DisplayName)
	assert.Equal(t, "organizer", user.Role)
	assert.Equal(t, "/organizer/home", user.HomePath)
	assert.Equal(t, "/organizer/profile", user.ProfilePath)
}

func TestNewTemplateData_RolelessUserHasNoHome(t *testing.T) {
	h := &UIHandlers{}
	snap := testutil.NewSnapshot().Build()

	data := h.NewTemplateData(httptest.NewRecorder(), visitorRequest(snap), pageMeta(PageCompleteProfile, "Complete")).Build()

	user, ok := data["User"].(*viewmodel.User)
	require.True(t, ok)
	assert.Empty(t, user.HomePath)
	assert.Empty(t, user.ProfilePath)
	assert.Equal(t, "there", user.DisplayName)
}

func TestNewTemplateData_ConsumesFlash(t *testing.T) {
	h := &UIHandlers{}
	seed := httptest.NewRecorder()
	h.Cookies.WriteFlash(seed, httptest.NewRequest(http.MethodPost, "/", nil), FlashNotice{Kind: FlashSuccess, Key: FlashProfileSaved})
	cookies := seed.Result().Cookies()
	require.Len(t, cookies, 1)

	r := httptest.NewRequest(http.MethodGet, "/organizer/profile", nil)
	r.AddCookie(cookies[0])
	w := httptest.NewRecorder()
	data := h.NewTemplateData(w, r, pageMeta(PageOrganizerProfile, "Profile")).Build()

	flash, ok := data["Flash"].(*viewmodel.Flash)
	require.True(t, ok)
	assert.Equal(t, "success", flash.Kind)
	assert.Equal(t, "Profile updated successfully!", flash.Message)

	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, flashCookieName, cleared[0].Name)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestNewTemplateData_IgnoresUnknownFlash(t *testing.T) {
	h := &UIHandlers{}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: flashCookieName, Value: "not-base64!"})

	data := h.NewTemplateData(httptest.NewRecorder(), r, pageMeta(PageLanding, "Welcome")).Build()
	assert.NotContains(t, data, "Flash")
}

func TestTemplateDataBuilder_Chaining(t *testing.T) {
	h := &UIHandlers{}
	r := httptest.NewRequest(http.MethodGet, "/auth/login", nil)

	data := h.NewTemplateData(httptest.NewRecorder(), r, pageMeta(PageLogin, "Sign In")).
		WithFieldErrors(map[string]string{"email": "Email is required"}).
		WithForm(map[string]string{"email": "ada@uom.lk"}).
		With("Extra", 42).
		Build()

	assert.Equal(t, map[string]string{"email": "Email is required"}, data["Errors"])
	assert.Equal(t, map[string]string{"email": "ada@uom.lk"}, data["Form"])
	assert.Equal(t, 42, data["Extra"])
}

func TestTemplateDataBuilder_EmptyInputsAreSkipped(t *testing.T) {
	h := &UIHandlers{}
	r := httptest.NewRequest(http.MethodGet, "/auth/login", nil)

	data := h.NewTemplateData(httptest.NewRecorder(), r, pageMeta(PageLogin, "Sign In")).
		WithFieldErrors(nil).
		WithForm(map[string]string{}).
		Build()

	assert.NotContains(t, data, "Errors")
	assert.NotContains(t, data, "Form")
}
