package httpx

// CurrentPage constants define the page identifiers used in templates and navigation.
const (
	PageLanding = "landing"
	PageLoading = "loading"

	// Account pages.
	PageLogin           = "login"
	PageSignup          = "signup"
	PageVerifyEmail     = "verify-email"
	PageForgotPassword  = "forgot-password"
	PageResetPassword   = "reset-password"
	PageCompleteProfile = "complete-profile"
	PageAccountError    = "account-error"

	// Role pages.
	PageOrganizerHome    = "organizer-home"
	PageOrganizerProfile = "organizer-profile"
	PageSponsorHome      = "sponsor-home"
	PageSponsorProfile   = "sponsor-profile"
)

// HubPath is the post-login dispatcher that sends users to their role home.
const HubPath = "/auth/redirect"

// Template paths used for loading templates in tests and production.
const (
	TemplatePathFromRoot = "frontend/templates"       // From project root
	TemplatePathFromTest = "../../frontend/templates" // From internal/http test files
)

// Content templates are defined once and reused to avoid per-call allocations.
//
//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageLanding:          "landing-content",
	PageLoading:          "loading-content",
	PageLogin:            "login-content",
	PageSignup:           "signup-content",
	PageVerifyEmail:      "verify-email-content",
	PageForgotPassword:   "forgot-password-content",
	PageResetPassword:    "reset-password-content",
	PageCompleteProfile:  "complete-profile-content",
	PageAccountError:     "account-error-content",
	PageOrganizerHome:    "organizer-home-content",
	PageOrganizerProfile: "organizer-profile-content",
	PageSponsorHome:      "sponsor-home-content",
	PageSponsorProfile:   "sponsor-profile-content",
}

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to landing-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "landing-content"
}
