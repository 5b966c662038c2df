package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jvmtools/svcgen/internal/branding"
)

const githubAPIBase = "https://api.github.com"

// Release is the subset of a GitHub release the checker reads.
type Release struct {
	Tag       string    `json:"tag_name"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Checker looks up the latest release for a running version.
type Checker struct {
	current string
	client  *http.Client
	baseURL string
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces the default client, which times out after ten
// seconds.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) { ch.client = c }
}

// WithBaseURL points the checker at a GitHub API compatible server.
func WithBaseURL(url string) Option {
	return func(ch *Checker) { ch.baseURL = strings.TrimRight(url, "/") }
}

// NewChecker returns a Checker for the running version current.
func NewChecker(current string, opts ...Option) *Checker {
	c := &Checker{
		current: current,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: githubAPIBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the running version the checker compares against.
func (c *Checker) Current() string { return c.current }

// Latest fetches the latest published release. GITHUB_TOKEN, when set,
// authenticates the request for a higher rate limit.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, branding.GitHubRepo())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", branding.CLIName()+"/"+c.current)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("no release published for %s", branding.GitHubRepo())
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, fmt.Errorf("GitHub API rate limit exceeded; set GITHUB_TOKEN for higher limits")
	default:
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	if rel.Tag == "" {
		return nil, fmt.Errorf("release has no tag")
	}
	return &rel, nil
}
