package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sakif/codegen-gateway/internal/model"
)

// CookieName is the cookie the login flow sets and RequireAuth falls back to.
const CookieName = "token"

// Failure messages written by RequireAuth.
const (
	MsgNoToken     = "Not authorized, no token"
	MsgTokenFailed = "Not authorized, token failed"
)

// contextKey is unexported so no other package can read or shadow the
// identity stored under it.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth rejects requests without a valid token with 401 and the
// standard {success:false,error} envelope. A nil tokens rejects everything,
// so protected routes fail closed when auth is not configured.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := credential(r)
			if raw == "" {
				writeUnauthorized(w, MsgNoToken)
				return
			}
			if tokens == nil {
				writeUnauthorized(w, MsgTokenFailed)
				return
			}

			identity, err := tokens.Validate(raw)
			if err != nil {
				writeUnauthorized(w, MsgTokenFailed)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated identity.
// Returns false if RequireAuth did not run for this request.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.ID != ""
}

// credential reads the bearer token, falling back to the cookie.
func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
