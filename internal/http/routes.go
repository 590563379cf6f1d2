package httpx

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	sponsorlink "github.com/sponsorlink/sponsorlink-web"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Oracle   SessionResolver
	Accounts AccountFlows
	Profiles ProfileEditor
	// Optional: single sign-on. Leave nil when not configured.
	SSO SSOFlows
	// Optional: support channel for corrupt accounts.
	Alerts  CorruptNotifier
	Metrics statsd.Sink
	Guard   gate.Guard

	CookieDomain    string
	OrganizerDomain string
	ResendCooldown  time.Duration

	// Compression enables gzip responses at CompressionLevel.
	Compression      bool
	CompressionLevel int

	AssetVersion string
	// TemplateFS overrides where templates are loaded from (tests).
	TemplateFS fs.FS
	IsDev      bool         // Development mode flag for hot reloading, etc.
	Logger     *slog.Logger // Logger for template and HTTP errors (optional)
}

func (s RouterServices) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// NewRouter creates and configures a new HTTP router with browser middleware.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Oracle == nil || services.Accounts == nil || services.Profiles == nil {
		return nil, errors.New("router: Oracle, Accounts and Profiles are required")
	}

	ui, err := setupUIHandlers(services)
	if err != nil {
		return nil, err
	}

	g := &Gate{
		Guard:    services.Guard,
		Oracle:   services.Oracle,
		Sessions: services.Accounts,
		Alerts:   services.Alerts,
		Metrics:  services.Metrics,
		Cookies:  ui.Cookies,
		Waiting:  http.HandlerFunc(ui.Loading),
		Logger:   services.logger().With("component", "gate"),
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /auth/status", authStatusHandler(services.Oracle, ui.Cookies))

	// Static assets at /static
	// Dev mode: serve from disk for hot reloading
	// Prod mode: serve from embedded FS
	mux.Handle("GET /static/", staticHandler(services.IsDev, services.logger()))

	registerAccountRoutes(mux, ui, g)
	registerProfileRoutes(mux, ui, g)
	if ui.SSO != nil {
		mux.HandleFunc("GET /auth/sso/login", ui.SSOLogin)
		mux.HandleFunc("GET "+ssoCallbackPath, ui.SSOCallback)
	}

	var handler http.Handler = &notFoundHandler{mux: mux, uiHandlers: ui}
	handler = CSRFProtection(CSRFConfig{
		CookieDomain: services.CookieDomain,
		OnFailure: func(w http.ResponseWriter, r *http.Request) {
			if !IsBrowserRequest(r) {
				WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "csrf_failed", Err: errCSRFRejected})
				return
			}
			ui.renderError(w, r, http.StatusForbidden, "Your form expired. Please reload the page and try again.")
		},
	})(handler)
	handler = BrowserDetection()(handler)
	if services.Compression {
		handler = Compression(CompressionConfig{Level: services.CompressionLevel, Logger: services.Logger})(handler)
	}
	handler = Logging(services.logger())(handler)
	handler = Recover(services.logger(), ui.InternalError)(handler)
	return handler, nil
}

// page wires a guarded page handler.
func page(mux *http.ServeMux, g *Gate, pattern string, rule PageRule, h http.HandlerFunc) {
	if rule.Name == "" {
		rule.Name = pattern
	}
	mux.Handle(pattern, g.Page(rule)(h))
}

func registerAccountRoutes(mux *http.ServeMux, h *UIHandlers, g *Gate) {
	public := PageRule{Requirements: gate.Public()}
	guest := PageRule{Requirements: gate.Public(), GuestOnly: true}
	signedIn := PageRule{Requirements: gate.SignedIn()}

	page(mux, g, "GET /{$}", public, h.Landing)
	page(mux, g, "GET /auth/login", guest, h.LoginPage)
	mux.HandleFunc("POST /auth/login", h.Login)
	page(mux, g, "GET /auth/signup", guest, h.SignupPage)
	mux.HandleFunc("POST /auth/signup", h.Signup)
	mux.HandleFunc("POST /auth/logout", h.Logout)

	page(mux, g, "GET /auth/verify-email", signedIn, h.VerifyEmailPage)
	page(mux, g, "POST /auth/verify-email", signedIn, h.VerifyEmail)
	page(mux, g, "POST /auth/verify-email/resend", signedIn, h.ResendCode)

	page(mux, g, "GET "+forgotPasswordPath, public, h.ForgotPasswordPage)
	mux.HandleFunc("POST "+forgotPasswordPath, h.ForgotPassword)
	page(mux, g, "GET "+resetPasswordPath, public, h.ResetPasswordPage)
	mux.HandleFunc("POST "+resetPasswordPath, h.ResetPassword)

	page(mux, g, "GET /auth/account-error", public, h.AccountError)
	page(mux, g, "GET "+HubPath, PageRule{Requirements: gate.Dispatch(profile.Roles()...)}, h.Hub)
}

func registerProfileRoutes(mux *http.ServeMux, h *UIHandlers, g *Gate) {
	verified := PageRule{Requirements: gate.Verified()}
	organizer := PageRule{Requirements: gate.ForRoles(profile.RoleOrganizer)}
	sponsor := PageRule{Requirements: gate.ForRoles(profile.RoleSponsor)}

	page(mux, g, "GET /auth/complete-profile", verified, h.CompleteProfilePage)
	page(mux, g, "POST /auth/complete-profile", verified, h.CompleteProfile)

	page(mux, g, "GET /organizer/home", organizer, h.OrganizerHome)
	page(mux, g, "GET /organizer/profile", organizer, h.OrganizerProfile)
	page(mux, g, "POST /organizer/profile", organizer, h.OrganizerProfileUpdate)

	page(mux, g, "GET /sponsor/home", sponsor, h.SponsorHome)
	page(mux, g, "GET /sponsor/profile", sponsor, h.SponsorProfile)
	page(mux, g, "POST /sponsor/profile", sponsor, h.SponsorProfileUpdate)
}

// setupUIHandlers creates UI handlers with the template renderer.
// In dev mode (services.IsDev=true), templates are loaded from disk for hot reloading.
// In production mode (services.IsDev=false), templates are loaded from embedded FS.
func setupUIHandlers(services RouterServices) (*UIHandlers, error) {
	templateFS := services.TemplateFS
	if templateFS == nil {
		templateFS = defaultTemplateFS(services.IsDev, services.logger())
	}

	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS:   templateFS,
		AssetVersion: services.AssetVersion,
		DevMode:      services.IsDev,
		Logger:       services.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &UIHandlers{
		T:               tr,
		Accounts:        services.Accounts,
		Profiles:        services.Profiles,
		SSO:             services.SSO,
		Cookies:         CookieJar{Domain: services.CookieDomain},
		ResendCooldown:  services.ResendCooldown,
		OrganizerDomain: services.OrganizerDomain,
		IsDev:           services.IsDev,
		Logger:          services.Logger,
	}, nil
}

func defaultTemplateFS(isDev bool, logger *slog.Logger) fs.FS {
	if isDev {
		return os.DirFS(TemplatePathFromRoot)
	}
	templateFS, err := fs.Sub(sponsorlink.TemplateFS, "frontend/templates")
	if err != nil {
		logger.Warn("failed to create sub-filesystem for templates; falling back to disk", "error", err)
		return os.DirFS(TemplatePathFromRoot)
	}
	return templateFS
}

// staticHandler serves /static/* assets.
func staticHandler(isDev bool, logger *slog.Logger) http.Handler {
	if isDev {
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}
	staticSub, err := fs.Sub(sponsorlink.StaticFS, "frontend/static")
	if err != nil {
		logger.Warn("failed to create sub-filesystem for static assets; falling back to disk", "error", err)
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}
	return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
}

// staticWithCacheHeaders adds cache headers. Versioned URLs (?v=) are
// immutable for their version; anything else must be revalidated.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "" {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		handler.ServeHTTP(w, r)
	})
}

// notFoundHandler wraps a ServeMux and provides custom 404 handling.
type notFoundHandler struct {
	mux        *http.ServeMux
	uiHandlers *UIHandlers
}

// ServeHTTP implements http.Handler and provides custom 404 handling.
func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cw := newCaptureWriter()
	// Serve the request through the mux, capturing status, headers, and body
	h.mux.ServeHTTP(cw, r)

	// If the mux didn't handle the request (404), use our custom handler
	if cw.status == http.StatusNotFound && !strings.HasPrefix(r.URL.Path, "/static/") && h.uiHandlers != nil {
		// Keep cookies the handler already decided on.
		for _, c := range cw.header.Values("Set-Cookie") {
			w.Header().Add("Set-Cookie", c)
		}
		h.uiHandlers.NotFound(w, r)
		return
	}

	// Not a 404: write the captured response
	cw.flushTo(w)
}
