package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codegen-gateway/internal/model"
)

// protected echoes the identity RequireAuth attached.
func protected(tokens *TokenService) http.Handler {
	return RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "identity missing", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(id)
	}))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(octocat)

	req := httptest.NewRequest(http.MethodGet, "/api/snippets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(ts).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, octocat, got)
}

func TestRequireAuth_SchemeIsCaseInsensitive(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(octocat)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()

	protected(ts).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_CookieFallback(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(octocat)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()

	protected(ts).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_Failures(t *testing.T) {
	ts := newTestTokenService(t)
	expired, _ := ts.GenerateWithDuration(octocat, -time.Minute)

	tests := []struct {
		name    string
		tokens  *TokenService
		setup   func(r *http.Request)
		wantMsg string
	}{
		{"no credential", ts, func(*http.Request) {}, MsgNoToken},
		{"non-bearer scheme", ts, func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") }, MsgNoToken},
		{"garbage bearer", ts, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, MsgTokenFailed},
		{"expired", ts, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, MsgTokenFailed},
		{"auth not configured", nil, func(r *http.Request) { r.Header.Set("Authorization", "Bearer anything") }, MsgTokenFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			protected(tt.tokens).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeEnvelope(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestIdentityFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)

	_, ok = IdentityFromContext(WithIdentity(req.Context(), model.Identity{}))
	assert.False(t, ok, "an identity without id is not authenticated")
}
