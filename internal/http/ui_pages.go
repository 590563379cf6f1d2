package httpx

import (
	"errors"
	"net/http"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
)

// stat is one dashboard counter.
type stat struct {
	Label string
	Value int
}

// Landing renders the public home page.
func (h *UIHandlers) Landing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	h.Page(pageMeta(PageLanding, "Welcome"))(w, r)
}

// Loading renders the placeholder shown while identity facts load. The page
// polls its own URL so the gate decides again on every poll.
func (h *UIHandlers) Loading(w http.ResponseWriter, r *http.Request) {
	data := h.NewTemplateData(w, r, pageMeta(PageLoading, "Loading")).
		With("RefreshURL", r.URL.RequestURI()).
		Build()
	h.renderPage(w, r, data, http.StatusOK)
}

// Hub sends a fully set up user to their role home, or back to where they
// were headed before signing in.
func (h *UIHandlers) Hub(w http.ResponseWriter, r *http.Request) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.State.Is(profile.KindReady) {
		h.Loading(w, r)
		return
	}
	target := h.takePostLoginTarget(w, r)
	if target == HubPath {
		target = gate.HomeFor(v.State.Role).Path()
	}
	redirectTo(w, r, target)
}

// AccountError renders the terminal page for accounts that cannot be routed.
func (h *UIHandlers) AccountError(w http.ResponseWriter, r *http.Request) {
	data := h.NewTemplateData(w, r, pageMeta(PageAccountError, "Account Error")).
		With("SupportEmail", "support@sponsorlink.com").
		Build()
	h.renderPage(w, r, data, http.StatusOK)
}

// OrganizerHome renders the organizer dashboard.
func (h *UIHandlers) OrganizerHome(w http.ResponseWriter, r *http.Request) {
	v, _ := VisitorFromContext(r.Context())
	snap := v.Snapshot
	data := h.NewTemplateData(w, r, pageMeta(PageOrganizerHome, "Home")).
		With("Name", snap.DisplayName()).
		With("OfficialTitle", snap.Field(profile.FieldOfficialTitle)).
		With("OrganizationName", snap.Field(profile.FieldOrganizationName)).
		With("Stats", []stat{{Label: "Active Projects"}, {Label: "Sponsors Reached"}, {Label: "Prospects"}}).
		Build()
	h.renderPage(w, r, data, http.StatusOK)
}

// SponsorHome renders the sponsor dashboard.
func (h *UIHandlers) SponsorHome(w http.ResponseWriter, r *http.Request) {
	v, _ := VisitorFromContext(r.Context())
	snap := v.Snapshot
	data := h.NewTemplateData(w, r, pageMeta(PageSponsorHome, "Home")).
		With("Name", snap.DisplayName()).
		With("CompanyName", snap.Field(profile.FieldCompanyName)).
		With("Stats", []stat{{Label: "Tagged Projects"}, {Label: "Projects Viewed"}, {Label: "Prospects"}}).
		Build()
	h.renderPage(w, r, data, http.StatusOK)
}

// NotFound handles 404 errors.
// For browser requests, it renders an HTML error page.
// For API requests, it returns a JSON error response.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("not found"),
		})
		return
	}
	h.renderError(w, r, http.StatusNotFound, "The page you're looking for doesn't exist.")
}

// InternalError renders the generic error page; Recover uses it after a panic.
func (h *UIHandlers) InternalError(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal_error",
			Err:     errors.New("internal server error"),
		})
		return
	}
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}
