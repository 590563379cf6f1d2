package httpx

import (
	"context"
	"html"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/http/ui/viewmodel"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
)

const productName = "Sponsorlink"

// SessionResolver turns a session cookie into fresh identity facts.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) service.Resolution
	Fresh(ctx context.Context, sess domainauth.Session) profile.Snapshot
}

// AccountFlows is the subset of the account service the handlers drive.
type AccountFlows interface {
	SignUp(ctx context.Context, in service.SignUpInput) (service.AccountResult, error)
	SignIn(ctx context.Context, in service.SignInInput) (service.AccountResult, error)
	SignOut(ctx context.Context, sessionID string) error
	SendVerificationCode(ctx context.Context, sess domainauth.Session) error
	VerifyEmail(ctx context.Context, sess domainauth.Session, code string) (service.AccountResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in service.ResetPasswordInput) (service.AccountResult, error)
}

// ProfileEditor saves role profiles.
type ProfileEditor interface {
	Submit(ctx context.Context, sess domainauth.Session, role string, fields map[string]string) (service.SubmitResult, error)
}

// SSOFlows drives the single sign-on redirect dance.
type SSOFlows interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (service.AccountResult, error)
}

// Compile-time interface assertions to ensure concrete services satisfy their UI interfaces.
var (
	_ SessionResolver = (*service.SessionOracle)(nil)
	_ AccountFlows    = (*service.AccountService)(nil)
	_ ProfileEditor   = (*service.ProfileService)(nil)
	_ SSOFlows        = (*service.SSOService)(nil)
)

// UIHandlers serves every HTML page of the application.
type UIHandlers struct {
	T        *TemplateRenderer
	Accounts AccountFlows
	Profiles ProfileEditor
	// SSO is nil when single sign-on is not configured.
	SSO     SSOFlows
	Cookies CookieJar
	// ResendCooldown is shown as the countdown on the verify page.
	ResendCooldown time.Duration
	// OrganizerDomain is the email domain organizers sign up with.
	OrganizerDomain string
	IsDev          bool // Development mode flag for enhanced error reporting
	Logger         *slog.Logger
}

func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

func pageMeta(page, title string) PageMeta {
	return PageMeta{Title: title + " - " + productName, PageTitle: title, CurrentPage: page}
}

// buildLayout constructs shared layout metadata from the request context.
func (h *UIHandlers) buildLayout(w http.ResponseWriter, r *http.Request, meta PageMeta) viewmodel.Layout {
	layout := viewmodel.Layout{
		Title:       meta.Title,
		PageTitle:   meta.PageTitle,
		CurrentPage: meta.CurrentPage,
		CSRFToken:   GetCSRFToken(r),
		SSOEnabled:  h.SSO != nil,
	}

	if v, ok := VisitorFromContext(r.Context()); ok && v.HasSession && v.Snapshot.SignedIn {
		layout.IsAuthenticated = true
		layout.User = userView(v)
	}

	if notice, ok := h.Cookies.ReadFlash(w, r); ok {
		layout.Flash = &viewmodel.Flash{Kind: string(notice.Kind), Message: notice.Message()}
	}
	return layout
}

func userView(v Visitor) *viewmodel.User {
	snap := v.Snapshot
	u := &viewmodel.User{
		Email:       snap.Email,
		FirstName:   snap.FirstName,
		DisplayName: snap.DisplayName(),
		Role:        string(snap.Role),
		RoleLabel:   snap.Role.Label(),
	}
	if snap.Role.Valid() {
		u.HomePath = gate.HomeFor(snap.Role).Path()
		u.ProfilePath = profilePathFor(snap.Role)
	}
	return u
}

func profilePathFor(role profile.Role) string {
	switch role {
	case profile.RoleOrganizer:
		return "/organizer/profile"
	case profile.RoleSponsor:
		return "/sponsor/profile"
	default:
		return gate.RouteCompleteProfile.Path()
	}
}

// basePageData constructs the common page data map with user context.
func (h *UIHandlers) basePageData(w http.ResponseWriter, r *http.Request, meta PageMeta) map[string]any {
	layout := h.buildLayout(w, r, meta)
	data := map[string]any{
		"Title":           layout.Title,
		"PageTitle":       layout.PageTitle,
		"CurrentPage":     layout.CurrentPage,
		"IsAuthenticated": layout.IsAuthenticated,
		"SSOEnabled":      layout.SSOEnabled,
		"CSRFToken":       layout.CSRFToken,
	}
	if layout.User != nil {
		data["User"] = layout.User
	}
	if layout.Flash != nil {
		data["Flash"] = layout.Flash
	}
	return data
}

// Page renders a page with no page-specific data.
func (h *UIHandlers) Page(meta PageMeta) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderPage(w, r, h.basePageData(w, r, meta), http.StatusOK)
	}
}

// renderPage renders a full page, or only its content for HTMX swaps.
// HTMX only swaps 2xx responses, so partials always answer 200.
func (h *UIHandlers) renderPage(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	w.Header().Set("Cache-Control", "no-store")
	if !WantsPartial(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if status != http.StatusOK {
			// Buffering happens in the renderer, so a failed render still gets the error page below.
			h.renderWithStatus(w, r, data, status)
			return
		}
		if err := h.T.RenderFull(w, r, data); err != nil {
			h.logAndRenderTemplateError(w, r, err, "full page render")
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page, _ := data["CurrentPage"].(string)
	title, _ := data["Title"].(string)
	// Include a <title> element so htmx updates document.title on partial swaps
	if _, err := w.Write([]byte(`<title>` + html.EscapeString(title) + `</title>`)); err != nil {
		h.logger().Error("failed to write partial document title", "error", err)
		return
	}
	if err := h.T.RenderPartial(w, page, data); err != nil {
		h.logAndRenderTemplateError(w, r, err, "partial content render")
	}
}

func (h *UIHandlers) renderWithStatus(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	rec := newCaptureWriter()
	if err := h.T.RenderFull(rec, r, data); err != nil {
		h.logAndRenderTemplateError(w, r, err, "full page render")
		return
	}
	rec.status = status
	rec.flushTo(w)
}

// renderError renders the standalone error page.
func (h *UIHandlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	session := GetSessionFromContext(r.Context())
	data := map[string]any{
		"Title":           http.StatusText(status) + " - " + productName,
		"Code":            status,
		"Message":         message,
		"IsAuthenticated": session != nil,
		"ShowLogin":       session == nil,
	}
	w.Header().Set("Cache-Control", "no-store")
	rec := newCaptureWriter()
	if err := h.T.RenderError(rec, r, data); err != nil {
		http.Error(w, message, status)
		return
	}
	rec.status = status
	rec.flushTo(w)
}

// logAndRenderTemplateError logs template errors and renders them in dev mode.
func (h *UIHandlers) logAndRenderTemplateError(w http.ResponseWriter, r *http.Request, err error, context string) {
	h.logger().Error("template rendering failed",
		"error", err,
		"context", context,
		"path", r.URL.Path,
		"method", r.Method,
	)

	if h.IsDev {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<pre class="template-error">` + html.EscapeString(context+": "+err.Error()) + `</pre>`))
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
