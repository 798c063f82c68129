package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/codegen-gateway/internal/model"
)

const githubUserURL = "https://api.github.com/user"

// GitHubUser is the portion of the GitHub /user response we need.
type GitHubUser struct {
	ID    int64  `json:"id"`    // numeric and stable, unlike the login
	Login string `json:"login"` // e.g. "octocat"
}

// Identity maps the GitHub account onto the identity snippets are scoped to.
// The "github:" prefix keeps ids from different issuers apart.
func (u *GitHubUser) Identity() model.Identity {
	return model.Identity{
		ID:    "github:" + strconv.FormatInt(u.ID, 10),
		Login: u.Login,
	}
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow. Only "read:user" is requested: the id and login are all we keep.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider creates a GitHubProvider. callbackURL must match the
// callback registered for the OAuth app exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		userURL: githubUserURL,
	}
}

// WithEndpoints points the provider at different OAuth and user endpoints,
// e.g. GitHub Enterprise or a test server.
func (p *GitHubProvider) WithEndpoints(authURL, tokenURL, userURL string) *GitHubProvider {
	p.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	p.userURL = userURL
	return p
}

// AuthURL returns the URL to redirect the user to. state must be echoed back
// by GitHub and checked against the state cookie to stop login CSRF.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for an access token and uses it to
// fetch the GitHub profile. The GitHub token is discarded afterwards.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &ghUser, nil
}
