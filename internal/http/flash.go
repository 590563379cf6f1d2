package httpx

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const flashCookieName = "sl_flash"

// FlashKind classifies flash notice presentation.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashInfo    FlashKind = "info"
	FlashError   FlashKind = "error"
)

// Flash notice keys. Only known keys render, so the cookie cannot inject text.
const (
	FlashProfileSaved  = "profile_saved"
	FlashCodeResent    = "code_resent"
	FlashPasswordReset = "password_reset"
	FlashSignedOut     = "signed_out"
	FlashResetSent     = "reset_sent"
)

//nolint:gochecknoglobals // fixed notice catalogue
var flashMessages = map[string]string{
	FlashProfileSaved:  "Profile updated successfully!",
	FlashCodeResent:    "New code sent to your email!",
	FlashPasswordReset: "Your password has been reset.",
	FlashSignedOut:     "You have been signed out.",
	FlashResetSent:     "We sent a password reset code to your email.",
}

// FlashNotice is a one-time notice carried across a redirect.
type FlashNotice struct {
	Kind FlashKind `json:"kind"`
	Key  string    `json:"key"`
}

// Message returns the display text of the notice.
func (n FlashNotice) Message() string { return flashMessages[n.Key] }

// WriteFlash stores a notice for the next page render.
func (c CookieJar) WriteFlash(w http.ResponseWriter, r *http.Request, notice FlashNotice) {
	normalized, ok := normalizeFlash(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return
	}
	c.set(w, r, flashCookieName, base64.RawURLEncoding.EncodeToString(payload), 0)
}

// ReadFlash reads and clears the flash notice cookie.
func (c CookieJar) ReadFlash(w http.ResponseWriter, r *http.Request) (FlashNotice, bool) {
	raw := cookieValue(r, flashCookieName)
	if raw == "" {
		return FlashNotice{}, false
	}
	c.Clear(w, r, flashCookieName)
	return decodeFlash(raw)
}

func decodeFlash(raw string) (FlashNotice, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return FlashNotice{}, false
	}
	var notice FlashNotice
	if err := json.Unmarshal(decoded, &notice); err != nil {
		return FlashNotice{}, false
	}
	return normalizeFlash(notice)
}

func normalizeFlash(notice FlashNotice) (FlashNotice, bool) {
	notice.Key = strings.TrimSpace(notice.Key)
	if _, known := flashMessages[notice.Key]; !known {
		return FlashNotice{}, false
	}
	notice.Kind = FlashKind(strings.ToLower(strings.TrimSpace(string(notice.Kind))))
	switch notice.Kind {
	case FlashSuccess, FlashInfo, FlashError:
		return notice, true
	default:
		return FlashNotice{}, false
	}
}
