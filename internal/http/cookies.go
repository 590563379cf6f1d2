package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
)

// Cookie names shared by handlers and middleware.
const (
	SessionCookieName = "session_id"

	oauthStateCookie    = "oauth_state"
	oauthNonceCookie    = "oauth_nonce"
	postLoginCookie     = "post_login_redirect"
	resetEmailCookie    = "reset_email"
	oauthCookieLifetime = 600 // 10 minutes
)

// CookieJar writes the application's cookies with consistent attributes.
type CookieJar struct {
	Domain string
}

// isSecureRequest reports whether the request arrived over HTTPS, directly or via a proxy.
func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}

func (c CookieJar) set(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// Clear expires a cookie. It mirrors the attributes used when setting
// cookies so browsers match and delete it.
func (c CookieJar) Clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSession writes the session cookie based on the session's expiry.
func (c CookieJar) SetSession(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.set(w, r, SessionCookieName, s.ID, maxAge)
}

// ClearSession expires the session cookie.
func (c CookieJar) ClearSession(w http.ResponseWriter, r *http.Request) {
	c.Clear(w, r, SessionCookieName)
}

// sessionIDFromRequest returns the raw session cookie value, if any.
func sessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return candidate
}
