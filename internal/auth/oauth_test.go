package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codegen-gateway/internal/model"
)

// newFakeGitHub serves the token and /user endpoints of the OAuth flow.
func newFakeGitHub(t *testing.T, userStatus int, userBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer","scope":"read:user"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userStatus)
		_, _ = w.Write([]byte(userBody))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GitHubProvider {
	return NewGitHubProvider("client-id", "client-secret", "http://localhost/callback").
		WithEndpoints(srv.URL+"/login/oauth/authorize", srv.URL+"/login/oauth/access_token", srv.URL+"/user")
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost:5000/api/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:5000/api/auth/github/callback", q.Get("redirect_uri"))
	assert.Equal(t, "read:user", q.Get("scope"))
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := newFakeGitHub(t, http.StatusOK, `{"id":583231,"login":"octocat","name":"The Octocat"}`)

	user, err := newTestProvider(srv).Exchange(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Equal(t, int64(583231), user.ID)
	assert.Equal(t, model.Identity{ID: "github:583231", Login: "octocat"}, user.Identity())
}

func TestGitHubProvider_ExchangeFailures(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		status int
		body   string
	}{
		{"bad code", "bad-code", http.StatusOK, `{"id":1}`},
		{"user api error", "good-code", http.StatusUnauthorized, `{"message":"Bad credentials"}`},
		{"zero id", "good-code", http.StatusOK, `{"login":"ghost"}`},
		{"malformed body", "good-code", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeGitHub(t, tt.status, tt.body)

			_, err := newTestProvider(srv).Exchange(context.Background(), tt.code)
			assert.Error(t, err)
		})
	}
}
