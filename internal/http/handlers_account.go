package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
)

const (
	forgotPasswordPath = "/auth/forgot-password"
	resetPasswordPath  = "/auth/reset-password"

	resetEmailLifetime    = 900 // 15 minutes
	defaultResendCooldown = 60 * time.Second
)

// roleOption is one entry of a role picker.
type roleOption struct {
	Value    string
	Label    string
	Selected bool
}

func roleOptions(selected string) []roleOption {
	roles := profile.Roles()
	out := make([]roleOption, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleOption{Value: string(role), Label: role.Label(), Selected: string(role) == selected})
	}
	return out
}

// LoginPage renders the sign-in form.
func (h *UIHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := h.NewTemplateData(w, r, pageMeta(PageLogin, "Sign In")).Build()
	h.renderPage(w, r, data, http.StatusOK)
}

// Login handles the sign-in form submission.
func (h *UIHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	res, err := h.Accounts.SignIn(r.Context(), service.SignInInput{
		Email:            email,
		Password:         r.PostFormValue("password"),
		CurrentSessionID: sessionIDFromRequest(r),
	})
	if err != nil {
		h.logAccountFailure(r, "sign_in", err)
		field, msg := accountFailure(formSignIn, err)
		data := h.NewTemplateData(w, r, pageMeta(PageLogin, "Sign In")).
			WithFieldErrors(fieldErrors(field, msg)).
			WithForm(map[string]string{"email": email}).
			Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}
	h.finishSignIn(w, r, res)
}

// SignupPage renders the sign-up form with the role picker.
func (h *UIHandlers) SignupPage(w http.ResponseWriter, r *http.Request) {
	selected := r.URL.Query().Get("role")
	if _, ok := profile.ParseRole(selected); !ok {
		selected = string(profile.RoleOrganizer)
	}
	data := h.signupData(w, r, selected).Build()
	h.renderPage(w, r, data, http.StatusOK)
}

func (h *UIHandlers) signupData(w http.ResponseWriter, r *http.Request, selected string) *TemplateDataBuilder {
	return h.NewTemplateData(w, r, pageMeta(PageSignup, "Create Your Account")).
		With("Roles", roleOptions(selected)).
		With("SelectedRole", selected).
		With("OrganizerDomain", h.OrganizerDomain)
}

// Signup handles the sign-up form submission.
func (h *UIHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	form := map[string]string{
		"role":       strings.TrimSpace(r.PostFormValue("role")),
		"first_name": strings.TrimSpace(r.PostFormValue("first_name")),
		"last_name":  strings.TrimSpace(r.PostFormValue("last_name")),
		"email":      strings.TrimSpace(r.PostFormValue("email")),
	}
	res, err := h.Accounts.SignUp(r.Context(), service.SignUpInput{
		Role:             form["role"],
		FirstName:        form["first_name"],
		LastName:         form["last_name"],
		Email:            form["email"],
		Password:         r.PostFormValue("password"),
		ConfirmPassword:  r.PostFormValue("confirm_password"),
		CurrentSessionID: sessionIDFromRequest(r),
	})
	if domainauth.HasCode(err, domainauth.CodeSessionExists) {
		redirectTo(w, r, HubPath)
		return
	}
	if err != nil {
		h.logAccountFailure(r, "sign_up", err)
		field, msg := accountFailure(formSignUp, err)
		data := h.signupData(w, r, form["role"]).
			WithFieldErrors(fieldErrors(field, msg)).
			WithForm(form).
			Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}
	h.finishSignIn(w, r, res)
}

// Logout ends the server session before answering and returns to login.
func (h *UIHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionIDFromRequest(r); id != "" {
		if err := h.Accounts.SignOut(r.Context(), id); err != nil {
			h.logger().ErrorContext(r.Context(), "sign out failed", "error", err)
		}
	}
	h.Cookies.ClearSession(w, r)
	h.Cookies.WriteFlash(w, r, FlashNotice{Kind: FlashInfo, Key: FlashSignedOut})
	redirectTo(w, r, gate.RouteLogin.Path())
}

// VerifyEmailPage renders the code entry form. Verified users move on.
func (h *UIHandlers) VerifyEmailPage(w http.ResponseWriter, r *http.Request) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.HasSession {
		redirectTo(w, r, gate.RouteLogin.Path())
		return
	}
	if v.Snapshot.EmailVerified {
		redirectTo(w, r, HubPath)
		return
	}
	h.renderPage(w, r, h.verifyData(w, r, v).Build(), http.StatusOK)
}

func (h *UIHandlers) verifyData(w http.ResponseWriter, r *http.Request, v Visitor) *TemplateDataBuilder {
	email := v.Snapshot.Email
	if email == "" {
		email = v.Session.Email
	}
	return h.NewTemplateData(w, r, pageMeta(PageVerifyEmail, "Verify Your Email")).
		With("Email", email).
		With("ResendSeconds", h.resendSeconds())
}

func (h *UIHandlers) resendSeconds() int {
	cooldown := h.ResendCooldown
	if cooldown <= 0 {
		cooldown = defaultResendCooldown
	}
	return int(cooldown / time.Second)
}

// VerifyEmail checks the submitted verification code.
func (h *UIHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.HasSession {
		redirectTo(w, r, gate.RouteLogin.Path())
		return
	}
	if !h.parseForm(w, r) {
		return
	}
	res, err := h.Accounts.VerifyEmail(r.Context(), v.Session, strings.TrimSpace(r.PostFormValue("code")))
	if err != nil {
		h.logAccountFailure(r, "verify_email", err)
		field, msg := accountFailure(formVerify, err)
		data := h.verifyData(w, r, v).WithFieldErrors(fieldErrors(field, msg)).Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}
	h.finishSignIn(w, r, res)
}

// ResendCode sends a fresh verification code.
func (h *UIHandlers) ResendCode(w http.ResponseWriter, r *http.Request) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.HasSession {
		redirectTo(w, r, gate.RouteLogin.Path())
		return
	}
	if err := h.Accounts.SendVerificationCode(r.Context(), v.Session); err != nil {
		h.logAccountFailure(r, "send_code", err)
		field, msg := accountFailure(formResend, err)
		if IsHTMX(r) {
			HTMX(w).Toast(msg, string(FlashError))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		data := h.verifyData(w, r, v).WithFieldErrors(fieldErrors(field, msg)).Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}
	if IsHTMX(r) {
		// The resend form swaps nothing; a toast is the whole answer.
		HTMX(w).Toast(flashMessages[FlashCodeResent], string(FlashSuccess))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.Cookies.WriteFlash(w, r, FlashNotice{Kind: FlashSuccess, Key: FlashCodeResent})
	redirectTo(w, r, gate.RouteVerifyEmail.Path())
}

// ForgotPasswordPage renders the reset request form.
func (h *UIHandlers) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	data := h.NewTemplateData(w, r, pageMeta(PageForgotPassword, "Reset Password")).Build()
	h.renderPage(w, r, data, http.StatusOK)
}

// ForgotPassword emails a reset code and moves on to the reset form.
func (h *UIHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	if err := h.Accounts.RequestPasswordReset(r.Context(), email); err != nil {
		h.logAccountFailure(r, "request_reset", err)
		field, msg := accountFailure(formForgot, err)
		data := h.NewTemplateData(w, r, pageMeta(PageForgotPassword, "Reset Password")).
			WithFieldErrors(fieldErrors(field, msg)).
			WithForm(map[string]string{"email": email}).
			Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}
	h.Cookies.set(w, r, resetEmailCookie, email, resetEmailLifetime)
	h.Cookies.WriteFlash(w, r, FlashNotice{Kind: FlashInfo, Key: FlashResetSent})
	redirectTo(w, r, resetPasswordPath)
}

// ResetPasswordPage renders the code and new password form.
func (h *UIHandlers) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	email := cookieValue(r, resetEmailCookie)
	if email == "" {
		redirectTo(w, r, forgotPasswordPath)
		return
	}
	data := h.NewTemplateData(w, r, pageMeta(PageResetPassword, "Set a New Password")).
		With("Email", email).
		Build()
	h.renderPage(w, r, data, http.StatusOK)
}

// ResetPassword sets the new password and signs the user in.
func (h *UIHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := cookieValue(r, resetEmailCookie)
	if email == "" {
		email = strings.TrimSpace(r.PostFormValue("email"))
	}
	res, err := h.Accounts.ResetPassword(r.Context(), service.ResetPasswordInput{
		Email:            email,
		Code:             strings.TrimSpace(r.PostFormValue("code")),
		Password:         r.PostFormValue("password"),
		ConfirmPassword:  r.PostFormValue("confirm_password"),
		CurrentSessionID: sessionIDFromRequest(r),
	})
	if err != nil {
		h.logAccountFailure(r, "reset_password", err)
		field, msg := accountFailure(formReset, err)
		data := h.NewTemplateData(w, r, pageMeta(PageResetPassword, "Set a New Password")).
			With("Email", email).
			WithFieldErrors(fieldErrors(field, msg)).
			Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}
	h.Cookies.Clear(w, r, resetEmailCookie)
	h.Cookies.WriteFlash(w, r, FlashNotice{Kind: FlashSuccess, Key: FlashPasswordReset})
	h.finishSignIn(w, r, res)
}

// finishSignIn stores the session and sends the browser to the next step
// of onboarding, or to where it was headed before signing in.
func (h *UIHandlers) finishSignIn(w http.ResponseWriter, r *http.Request, res service.AccountResult) {
	h.Cookies.SetSession(w, r, res.Session)
	switch {
	case res.Status == domainauth.StatusNeedsVerification:
		redirectTo(w, r, gate.RouteVerifyEmail.Path())
	case res.NeedsRole:
		redirectTo(w, r, gate.RouteCompleteProfile.Path())
	default:
		redirectTo(w, r, h.takePostLoginTarget(w, r))
	}
}

// takePostLoginTarget consumes the remembered destination. Auth pages are
// never a destination; the hub picks the role home instead.
func (h *UIHandlers) takePostLoginTarget(w http.ResponseWriter, r *http.Request) string {
	raw := cookieValue(r, postLoginCookie)
	if raw == "" {
		return HubPath
	}
	h.Cookies.Clear(w, r, postLoginCookie)
	target := safeRedirectPath(raw)
	if target == "/" || strings.HasPrefix(target, "/auth/") {
		return HubPath
	}
	return target
}

func (h *UIHandlers) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read. Please try again.")
		return false
	}
	return true
}

// logAccountFailure logs refusals quietly and unexpected failures loudly.
func (h *UIHandlers) logAccountFailure(r *http.Request, op string, err error) {
	if opErr, ok := domainauth.AsOpError(err); ok {
		h.logger().InfoContext(r.Context(), "account operation refused",
			slog.String("op", op),
			slog.String("code", string(opErr.Code)),
			slog.String("field", opErr.Field),
		)
		return
	}
	h.logger().ErrorContext(r.Context(), "account operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
}
