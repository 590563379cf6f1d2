package httpx

import (
	"io"
	"net/http"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// authStatus is the JSON body of GET /auth/status.
type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	State         string `json:"state"`
	Role          string `json:"role,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Email         string `json:"email,omitempty"`
	Home          string `json:"home,omitempty"`
}

// authStatusHandler reports the caller's profile state.
// GET /auth/status.
func authStatusHandler(oracle SessionResolver, cookies CookieJar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionIDFromRequest(r)
		res := oracle.Resolve(r.Context(), sessionID)
		if r.Context().Err() != nil {
			return
		}
		if sessionID != "" && !res.HasSession && res.Snapshot.AuthLoaded {
			cookies.ClearSession(w, r)
		}

		state := profile.Classify(res.Snapshot)
		body := authStatus{
			Authenticated: res.HasSession && res.Snapshot.SignedIn,
			State:         state.String(),
			EmailVerified: res.Snapshot.EmailVerified,
			Email:         res.Snapshot.Email,
		}
		if state.Role.Valid() {
			body.Role = string(state.Role)
			if state.Is(profile.KindReady) {
				body.Home = gate.HomeFor(state.Role).Path()
			}
		}
		WriteJSON(w, http.StatusOK, body)
	}
}
