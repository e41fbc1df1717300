package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultBaseURL is the public GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// PerPage is the page size requested from the user repos endpoint. Only the
// first page is ever fetched.
const PerPage = 100

// ErrNetwork indicates the request never produced an HTTP response.
var ErrNetwork = errors.New("network error")

// StatusError is returned when GitHub answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string // e.g. "404 Not Found"
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// Client lists public repositories from the GitHub REST API without a token.
type Client struct {
	http    *http.Client
	baseURL string
	headers map[string]string
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, GitHub Enterprise).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for soft-fail warnings.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header GitHub asks API callers to send.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.headers["User-Agent"] = ua
		}
	}
}

// NewClient creates an unauthenticated client. Requests are subject to the
// anonymous rate limit.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: DefaultBaseURL,
		headers: map[string]string{"Accept": "application/vnd.github+json"},
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListUserRepos fetches the first page of a user's public repositories.
//
// A body that is not a JSON array is logged and treated as an empty list.
// Array elements that do not decode as repositories are skipped.
func (c *Client) ListUserRepos(ctx context.Context, user string) ([]Repository, error) {
	endpoint := fmt.Sprintf("%s/users/%s/repos?per_page=%d", c.baseURL, url.PathEscape(user), PerPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	return c.decode(user, body), nil
}

func (c *Client) decode(user string, body []byte) []Repository {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.logger.Warn("unexpected repos payload, treating as empty", "user", user, "bytes", len(body))
		return []Repository{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		c.logger.Warn("malformed repos payload, treating as empty", "user", user, "err", err)
		return []Repository{}
	}

	repos := make([]Repository, 0, len(items))
	skipped := 0
	for _, item := range items {
		var r Repository
		if bytes.Equal(item, []byte("null")) {
			skipped++
			continue
		}
		if err := json.Unmarshal(item, &r); err != nil {
			skipped++
			continue
		}
		repos = append(repos, r)
	}
	if skipped > 0 {
		c.logger.Warn("skipped malformed repositories", "user", user, "skipped", skipped, "kept", len(repos))
	}
	return repos
}
