// Package githubapi talks to the GitHub REST contents API. The Client is the
// gateway: it attaches the stored bearer credential, classifies responses
// into error kinds, and retries transient failures with linear backoff. The
// Resolver and Executor build on it for existence checks and content puts.
package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kessler/gitstow/apps/server/internal/upload"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultRetries = 3
	defaultBackoff = time.Second
)

// Client issues authenticated calls against the GitHub API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      upload.CredentialStore
	retries    int
	backoff    time.Duration
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets the total attempt budget for transient failures.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the linear backoff base: attempt n sleeps base × n.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoff = base
		}
	}
}

// NewClient creates a gateway for the GitHub API at baseURL. Pass "" for the
// public API, or a mock server URL in development. The bearer token is read
// from creds on every call, so a credential change mid-batch takes effect on
// the next request.
func NewClient(baseURL string, creds upload.CredentialStore, log *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		creds:      creds,
		retries:    defaultRetries,
		backoff:    defaultBackoff,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues an authenticated GET and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPut, path, body)
}

// request runs one call chain: attach credential, execute, classify, and
// retry transient/network failures up to the attempt budget with linearly
// increasing delay. Unauthenticated, NotFound, Forbidden, RateLimited, and
// Conflict are terminal on the first response.
func (c *Client) request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	if token == "" {
		return nil, &APIError{Kind: KindUnauthenticated, Message: "no credential stored"}
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	for attempt := 1; ; attempt++ {
		raw, retryable, err := c.do(ctx, method, path, token, payload)
		if err == nil {
			return raw, nil
		}
		if !retryable || attempt >= c.retries {
			return nil, err
		}
		c.log.Warn("github call failed, retrying",
			"method", method, "path", path, "attempt", attempt, "error", err)
		if serr := sleep(ctx, c.backoff*time.Duration(attempt)); serr != nil {
			return nil, serr
		}
	}
}

// do executes a single attempt. The second return value reports whether the
// failure is retryable.
func (c *Client) do(ctx context.Context, method, path, token string, payload []byte) (json.RawMessage, bool, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, &APIError{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("%s %s: %v", method, path, err),
		}
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // non-actionable after reading

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &APIError{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("read %s %s response: %v", method, path, err),
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, false, nil
	}

	apiErr := classify(resp, raw, method, path)
	if apiErr.Kind == KindUnauthenticated {
		// Evict the credential so subsequent calls fail fast without a
		// network attempt, forcing a re-login.
		if clearErr := c.creds.Clear(ctx); clearErr != nil {
			c.log.Error("failed to clear credential after 401", "error", clearErr)
		}
	}
	retryable := apiErr.Kind == KindTransient
	return nil, retryable, apiErr
}

// classify maps a non-2xx response to an error kind.
func classify(resp *http.Response, body []byte, method, path string) *APIError {
	msg := apiMessage(body)

	var kind ErrorKind
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = KindUnauthenticated
	case resp.StatusCode == http.StatusNotFound:
		kind = KindNotFound
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		kind = KindRateLimited
		if msg == "" {
			msg = "API rate limit exceeded"
		}
	case resp.StatusCode == http.StatusForbidden:
		kind = KindForbidden
	case resp.StatusCode == http.StatusConflict:
		kind = KindConflict
	default:
		kind = KindTransient
	}

	full := fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)
	if msg != "" {
		full += ": " + msg
	}
	return &APIError{Kind: kind, StatusCode: resp.StatusCode, Message: full}
}

// apiMessage extracts GitHub's {"message": "..."} body field, if present.
func apiMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Message
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// contentsPath builds the /repos/{owner}/{repo}/contents/{path} URL path,
// escaping each path segment individually so slashes survive.
func contentsPath(owner, repo, filePath string) string {
	segments := strings.Split(filePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("/repos/%s/%s/contents/%s",
		url.PathEscape(owner), url.PathEscape(repo), strings.Join(segments, "/"))
}
