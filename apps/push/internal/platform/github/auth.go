// Package github provides factory functions for authenticated GitHub API
// clients, used by the push CLI to preflight the target repository and
// branch before a batch starts.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

const defaultAPIURL = "https://api.github.com"

// NewTokenClient creates a *github.Client authenticated with a personal
// access token. Pass baseURL="" for the real GitHub API, or a custom URL
// (e.g. "http://localhost:9090") for a mock server.
func NewTokenClient(token, baseURL string) *gogithub.Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	c := gogithub.NewClient(httpClient)
	applyBaseURL(c, baseURL)
	return c
}

// NewAppClient creates a *github.Client authenticated as a GitHub App
// installation. privateKeyPath is the path to the app's PEM private key.
func NewAppClient(appID, installationID int64, privateKeyPath, baseURL string) (*gogithub.Client, error) {
	base := baseURL
	if base == "" {
		base = defaultAPIURL
	}

	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("github app auth: %w", err)
	}
	tr.BaseURL = base

	c := gogithub.NewClient(&http.Client{Transport: tr})
	applyBaseURL(c, baseURL)
	return c, nil
}

// Preflight verifies the target repository and branch exist and are visible
// with the configured credential, so a bad target fails before any upload.
func Preflight(ctx context.Context, c *gogithub.Client, owner, repo, branch string) error {
	if _, _, err := c.Repositories.Get(ctx, owner, repo); err != nil {
		return fmt.Errorf("repository %s/%s: %w", owner, repo, err)
	}
	if _, _, err := c.Repositories.GetBranch(ctx, owner, repo, branch, 1); err != nil {
		return fmt.Errorf("branch %q in %s/%s: %w", branch, owner, repo, err)
	}
	return nil
}

func applyBaseURL(c *gogithub.Client, baseURL string) {
	if baseURL == "" || baseURL == defaultAPIURL {
		return
	}
	u, err := url.Parse(baseURL + "/")
	if err != nil {
		return
	}
	c.BaseURL = u
}
