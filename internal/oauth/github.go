// Package oauth talks to the GitHub OAuth endpoints used for sign-in.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	githubAuthURL  = "https://github.com/login/oauth/authorize"
	githubTokenURL = "https://github.com/login/oauth/access_token"
	githubAPIBase  = "https://api.github.com"
)

// ErrNotConfigured is returned when client credentials are missing.
var ErrNotConfigured = errors.New("github oauth is not configured")

// Profile is the subset of the GitHub account used to reconcile a sign-in.
type Profile struct {
	ProviderID string
	Email      string
	Name       string
	AvatarURL  string
}

// Endpoints allows tests to point the provider at a fake server.
type Endpoints struct {
	AuthURL  string
	TokenURL string
	APIBase  string
}

// GitHubProvider implements the authorization code flow for GitHub.
type GitHubProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	endpoints    Endpoints
	httpClient   *http.Client
}

// NewGitHubProvider creates a new GitHub OAuth provider.
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		redirectURL:  strings.TrimSpace(redirectURL),
		endpoints: Endpoints{
			AuthURL:  githubAuthURL,
			TokenURL: githubTokenURL,
			APIBase:  githubAPIBase,
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithEndpoints overrides the GitHub URLs.
func (g *GitHubProvider) WithEndpoints(e Endpoints) *GitHubProvider {
	if e.AuthURL != "" {
		g.endpoints.AuthURL = e.AuthURL
	}
	if e.TokenURL != "" {
		g.endpoints.TokenURL = e.TokenURL
	}
	if e.APIBase != "" {
		g.endpoints.APIBase = strings.TrimRight(e.APIBase, "/")
	}
	return g
}

// Configured reports whether client credentials are present.
func (g *GitHubProvider) Configured() bool {
	return g != nil && g.clientID != "" && g.clientSecret != ""
}

// AuthURL returns the GitHub consent screen URL.
func (g *GitHubProvider) AuthURL(state string) string {
	params := url.Values{
		"client_id":    {g.clientID},
		"redirect_uri": {g.redirectURL},
		"scope":        {"read:user user:email"},
		"state":        {state},
	}
	return fmt.Sprintf("%s?%s", g.endpoints.AuthURL, params.Encode())
}

// ExchangeCode exchanges an authorization code for an access token.
func (g *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}
	data := url.Values{
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"code":          {code},
		"redirect_uri":  {g.redirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoints.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("github: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github: token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github: token exchange failed (%d)", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("github: decode token response: %w", err)
	}
	if tokenResp.Error != "" {
		return "", fmt.Errorf("github: %s: %s", tokenResp.Error, tokenResp.ErrorDesc)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("github: empty access token")
	}
	return tokenResp.AccessToken, nil
}

// GetUserProfile fetches the account profile. A private email is looked up
// through /user/emails; an empty Email means GitHub exposed none.
func (g *GitHubProvider) GetUserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := g.getJSON(ctx, accessToken, "/user", &profile); err != nil {
		return nil, fmt.Errorf("github: fetch profile: %w", err)
	}

	email := strings.TrimSpace(profile.Email)
	if email == "" {
		email, _ = g.fetchPrimaryEmail(ctx, accessToken)
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &Profile{
		ProviderID: strconv.FormatInt(profile.ID, 10),
		Email:      strings.ToLower(email),
		Name:       name,
		AvatarURL:  profile.AvatarURL,
	}, nil
}

// fetchPrimaryEmail returns the primary verified address, else the first one.
func (g *GitHubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, accessToken, "/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", errors.New("no email found")
}

func (g *GitHubProvider) getJSON(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoints.APIBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
