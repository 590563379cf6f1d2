package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTMX_RequestDetection(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("Hx-Request", "true")
	if !IsHTMX(r) {
		t.Fatal("expected IsHTMX true")
	}

	r2 := httptest.NewRequest(http.MethodGet, "/x", nil)
	if IsHTMX(r2) {
		t.Fatal("expected default to false")
	}
}

func TestHTMX_WantsPartial(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("Hx-Request", "true")
	if !WantsPartial(r) {
		t.Fatal("htmx request should want partial")
	}

	r.Header.Set("Hx-Boosted", "true")
	if WantsPartial(r) {
		t.Fatal("boosted navigation should get the full page")
	}

	r3 := httptest.NewRequest(http.MethodGet, "/x", nil)
	r3.Header.Set("Hx-Request", "true")
	r3.Header.Set("Hx-History-Restore-Request", "true")
	if WantsPartial(r3) {
		t.Fatal("history restore should get the full page")
	}
}

func TestHTMX_ResponseHeaders_Setters(t *testing.T) {
	rr := httptest.NewRecorder()
	SetHXRedirect(rr, "/auth/login")
	SetHXTrigger(rr, "saved", map[string]any{"id": "123"})
	res := rr.Result()
	t.Cleanup(func() { _ = res.Body.Close() })
	if got := res.Header.Get("Hx-Redirect"); got != "/auth/login" {
		t.Fatalf("HX-Redirect: %q", got)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Header.Get("Hx-Trigger")), &payload); err != nil {
		t.Fatalf("unmarshal trigger: %v", err)
	}
	if _, ok := payload["saved"]; !ok {
		t.Fatalf("expected 'saved' key in HX-Trigger: %v", payload)
	}
}

func TestSetHXTrigger_NilPayload(t *testing.T) {
	rr := httptest.NewRecorder()
	SetHXTrigger(rr, "refresh", nil)
	if got := rr.Header().Get("Hx-Trigger"); got != `{"refresh":true}` {
		t.Fatalf("HX-Trigger: %q", got)
	}
}
