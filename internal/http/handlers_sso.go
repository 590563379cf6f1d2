package httpx

import (
	"errors"
	"net/http"

	"github.com/sponsorlink/sponsorlink-web/internal/service"
)

const ssoCallbackPath = "/auth/sso/callback"

// SSOLogin starts single sign-on.
// GET /auth/sso/login?redirect_uri=<optional_redirect>.
func (h *UIHandlers) SSOLogin(w http.ResponseWriter, r *http.Request) {
	if h.SSO == nil {
		h.NotFound(w, r)
		return
	}

	if raw := r.URL.Query().Get("redirect_uri"); raw != "" {
		h.Cookies.set(w, r, postLoginCookie, safeRedirectPath(raw), oauthCookieLifetime)
	}

	result, err := h.SSO.BeginLogin(r.Context(), ssoCallbackPath)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "sso begin failed", "error", err)
		h.ssoFailed(w, r)
		return
	}

	// Store state and nonce in short-lived cookies for the callback.
	h.Cookies.set(w, r, oauthStateCookie, result.State, oauthCookieLifetime)
	h.Cookies.set(w, r, oauthNonceCookie, result.Nonce, oauthCookieLifetime)

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// SSOCallback completes single sign-on.
// GET /auth/sso/callback?code=<code>&state=<state>.
func (h *UIHandlers) SSOCallback(w http.ResponseWriter, r *http.Request) {
	if h.SSO == nil {
		h.NotFound(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if err := checkOAuthCallback(r, code, state); err != nil {
		h.logger().WarnContext(r.Context(), "sso callback rejected", "error", err)
		h.ssoFailed(w, r)
		return
	}

	result, err := h.SSO.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:             code,
		State:            state,
		Nonce:            cookieValue(r, oauthNonceCookie),
		CurrentSessionID: sessionIDFromRequest(r),
	})
	h.Cookies.Clear(w, r, oauthStateCookie)
	h.Cookies.Clear(w, r, oauthNonceCookie)
	if err != nil {
		h.logAccountFailure(r, "sign_in_sso", err)
		h.ssoFailed(w, r)
		return
	}

	h.finishSignIn(w, r, result)
}

func checkOAuthCallback(r *http.Request, code, state string) error {
	switch {
	case code == "":
		return errors.New("authorization code is required")
	case state == "":
		return errors.New("state parameter is required")
	case cookieValue(r, oauthStateCookie) != state:
		return errors.New("invalid or missing state parameter")
	case cookieValue(r, oauthNonceCookie) == "":
		return errors.New("missing nonce parameter")
	}
	return nil
}

// ssoFailed shows the login form with a general error.
func (h *UIHandlers) ssoFailed(w http.ResponseWriter, r *http.Request) {
	data := h.NewTemplateData(w, r, pageMeta(PageLogin, "Sign In")).
		WithFieldErrors(fieldErrors(generalField, fallbackMessages[formSignIn])).
		Build()
	h.renderPage(w, r, data, http.StatusUnauthorized)
}
