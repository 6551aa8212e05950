// Package registry fetches scout release and asset listings from a
// GitHub-style release registry.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://api.github.com"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
	userAgent       = "scoutbin"
)

// StatusError reports a non-success registry response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry: unexpected status %d from %s", e.Code, e.URL)
}

// HTTPClient is the minimal HTTP capability the client needs, kept as
// an interface so tests can substitute it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the registry API base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithPageSize bounds the number of releases fetched by ListReleases.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Client queries the release registry for a single repository.
type Client struct {
	repo       string
	baseURL    string
	httpClient HTTPClient
	pageSize   int
}

// NewClient creates a registry client for repo, an "owner/name" slug.
func NewClient(repo string, opts ...Option) *Client {
	c := &Client{
		repo:       repo,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReleases fetches up to one page of releases, most recent first as
// returned by the registry, with prereleases filtered out. Prereleases
// are never candidates for compatible-version selection.
func (c *Client) ListReleases(ctx context.Context) ([]Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d", c.baseURL, c.repo, c.pageSize)

	var releases []Release
	if err := c.getJSON(ctx, url, &releases); err != nil {
		return nil, err
	}

	stable := releases[:0]
	for _, rel := range releases {
		if rel.Prerelease {
			continue
		}
		stable = append(stable, rel)
	}
	return stable, nil
}

// LatestRelease fetches whatever the registry considers the most recent
// release. Unlike ListReleases this can return a prerelease; the
// asymmetry mirrors the registry's own endpoints and is intentional.
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)

	var release Release
	if err := c.getJSON(ctx, url, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// ReleaseByTag fetches a specific tagged release. The tag is normalized
// to carry a leading "v" before querying.
func (c *Client) ReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.baseURL, c.repo, tag)

	var release Release
	if err := c.getJSON(ctx, url, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("registry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("registry: decode response: %w", err)
	}
	return nil
}
