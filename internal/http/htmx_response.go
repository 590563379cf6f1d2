package httpx

import (
	"net/http"
)

// HTMXResponse provides a fluent API for building HTMX responses.
type HTMXResponse struct {
	w http.ResponseWriter
}

// HTMX creates a new HTMXResponse for fluent response building.
func HTMX(w http.ResponseWriter) *HTMXResponse {
	return &HTMXResponse{w: w}
}

// Redirect instructs htmx to navigate the browser to url and answers 204.
// The handler should return immediately afterwards.
func (h *HTMXResponse) Redirect(url string) {
	SetHXRedirect(h.w, url)
	h.w.WriteHeader(http.StatusNoContent)
}

// Toast queues a client-side toast notification. Chainable.
func (h *HTMXResponse) Toast(message, kind string) *HTMXResponse {
	SetHXTrigger(h.w, "showToast", map[string]string{"message": message, "type": kind})
	return h
}
