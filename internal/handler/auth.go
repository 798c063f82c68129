package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/sakif/codegen-gateway/internal/apperror"
	"github.com/sakif/codegen-gateway/internal/auth"
)

const stateCookieName = "oauth_state"

// AuthHandler issues tokens through the GitHub OAuth flow. No user record is
// stored: the token carries the GitHub-derived identity and nothing else.
type AuthHandler struct {
	github       *auth.GitHubProvider
	tokens       *auth.TokenService
	redirectURL  string
	secureCookie bool
	resp         *Responder
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. After a successful login the browser
// is sent to redirectURL. secureCookie should be set whenever the service is
// reached over HTTPS.
func NewAuthHandler(
	github *auth.GitHubProvider,
	tokens *auth.TokenService,
	redirectURL string,
	secureCookie bool,
	resp *Responder,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github:       github,
		tokens:       tokens,
		redirectURL:  redirectURL,
		secureCookie: secureCookie,
		resp:         resp,
		logger:       logger,
	}
}

// HandleGitHubLogin redirects the browser to GitHub.
//
// HTTP: GET /api/auth/github/login
//
// The random state goes into a short-lived cookie and must come back
// unchanged on the callback.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the login.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
//
//  1. Check state against the cookie
//  2. Exchange the code for the GitHub profile
//  3. Issue a JWT for github:<id> in the token cookie
//  4. Redirect to the app
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid state")
		h.resp.Error(w, r, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, withQuery(h.redirectURL, "auth", "denied"), http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.resp.Error(w, r, apperror.ValidationFailed("code", "Missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.resp.Error(w, r, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	identity := ghUser.Identity()
	token, err := h.tokens.Generate(identity)
	if err != nil {
		h.resp.Error(w, r, apperror.Internal("Failed to issue token", err))
		return
	}

	h.logger.Info("user authenticated",
		slog.String("identity", identity.ID),
		slog.String("login", identity.Login),
	)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.DefaultTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.redirectURL, http.StatusSeeOther)
}

// HandleLogout clears the token cookie. Tokens are stateless, so one copied
// elsewhere stays valid until it expires.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeData(w, http.StatusOK, struct{}{})
}

func withQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
