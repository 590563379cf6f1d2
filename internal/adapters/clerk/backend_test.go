package clerk

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// newServerProvider points a real SDK-backed provider at handler.
func newServerProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewProvider(Config{
		SecretKey:  "sk_test_123",
		APIURL:     srv.URL + "/v1",
		HTTPClient: srv.Client(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return p
}

func TestSDKBackend_VerifyPassword(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string
	p := newServerProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"verified":true}`)
	})

	require.NoError(t, p.VerifyPassword(context.Background(), "user_1", "s3cret-pass"))
	assert.Equal(t, "POST /v1/users/user_1/verify_password", gotPath)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "s3cret-pass", gotBody["password"])
}

func TestSDKBackend_VerifyPasswordIncorrect(t *testing.T) {
	p := newServerProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"errors":[{"code":"incorrect_password","message":"Password is incorrect"}]}`)
	})

	err := p.VerifyPassword(context.Background(), "user_1", "wrong")
	var opErr *domainauth.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domainauth.CodePasswordIncorrect, opErr.Code)
}

func TestSDKBackend_VerifyPasswordNotVerified(t *testing.T) {
	p := newServerProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"verified":false}`)
	})

	err := p.VerifyPassword(context.Background(), "user_1", "wrong")
	var opErr *domainauth.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domainauth.CodePasswordIncorrect, opErr.Code)
}

func TestSDKBackend_GetUserDropsNulledMetadata(t *testing.T) {
	p := newServerProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "user_1",
			"primary_email_address_id": "idn_1",
			"email_addresses": [{"id": "idn_1", "email_address": "ada@uom.lk", "verification": {"status": "verified"}}],
			"unsafe_metadata": {"userType": "organizer", "organizationName": "Robotics Club", "bio": null}
		}`)
	})

	u, err := p.GetUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "ada@uom.lk", u.Email)
	assert.Equal(t, "organizer", u.Metadata["userType"])
	assert.NotContains(t, u.Metadata, "bio")
}

func TestSDKBackend_GetUserNotFound(t *testing.T) {
	p := newServerProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"code":"resource_not_found","message":"not found"}]}`)
	})

	_, err := p.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrUserNotFound)
}

func TestDecodeMetadata_NullIsAbsent(t *testing.T) {
	got := decodeMetadata(json.RawMessage(`{"bio":null,"companyName":"Acme","count":3}`))
	assert.Equal(t, map[string]string{"companyName": "Acme", "count": "3"}, got)
}
