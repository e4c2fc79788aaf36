// Package gitlab is a small client for the parts of the GitLab REST API (v4)
// used by gitlab-search: project listing, project lookup, blob search and
// the version probe.
//
// Every request is an authenticated GET carrying the PRIVATE-TOKEN header.
// Each call gets its own deadline and passes through a shared rate limiter.
// Failures are classified into structured errors so the retry policy in
// internal/errors can decide what is transient.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

const (
	// DefaultTimeout bounds a single HTTP call.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond is the client-side request rate.
	DefaultRequestsPerSecond = 10.0

	// DefaultBurst is the limiter burst. It matches the search worker count.
	DefaultBurst = 8

	// projectCacheSize bounds the project lookup cache.
	projectCacheSize = 256

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 512

	apiPrefix = "/api/v4"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the instance root, e.g. https://gitlab.example.com.
	BaseURL string

	// Token is sent as PRIVATE-TOKEN. Empty means anonymous.
	Token string

	// Timeout bounds each HTTP call (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond caps the request rate. Negative disables the limiter.
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 8).
	Burst int

	// PageSize is the per_page used when listing (default: 50, max: 100).
	PageSize int

	// Retry is the policy for listing pages (default: errors.DefaultRetryConfig).
	Retry *gserrors.RetryConfig

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client

	// UserAgent is sent on every request.
	UserAgent string

	// Logger receives request-level debug events (default: slog.Default).
	Logger *slog.Logger
}

// Client talks to one GitLab instance. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	token     string
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	pageSize  int
	retry     gserrors.RetryConfig
	userAgent string
	logger    *slog.Logger

	projects *lru.Cache[string, Project]
}

// NewClient creates a client for the instance at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "gitlab-search"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	retry := gserrors.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		// No client-level Timeout: each call sets its own deadline.
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        opts.Burst * 2,
				MaxIdleConnsPerHost: opts.Burst * 2,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}

	cache, err := lru.New[string, Project](projectCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create project cache: %w", err)
	}

	return &Client{
		base:      base,
		token:     opts.Token,
		http:      httpClient,
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(limit, opts.Burst),
		pageSize:  ClampPageSize(opts.PageSize),
		retry:     retry,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
		projects:  cache,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, gserrors.ConfigError("instance URL is empty", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, gserrors.ConfigError(fmt.Sprintf("invalid instance URL %q", raw), err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, gserrors.ConfigError(fmt.Sprintf("instance URL %q must be an absolute http(s) URL", raw), nil)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// BaseURL returns the normalized instance URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// RetryConfig returns the retry policy the client uses for listing pages.
func (c *Client) RetryConfig() gserrors.RetryConfig {
	return c.retry
}

// endpoint builds the request URL. path must already be escaped.
func (c *Client) endpoint(path string, query url.Values) string {
	s := c.base.String() + apiPrefix + path
	if len(query) > 0 {
		s += "?" + query.Encode()
	}
	return s
}

// get performs one GET and decodes a JSON body into v.
// It does not retry; callers wrap it with the retry policy.
func (c *Client) get(ctx context.Context, path string, query url.Values, v any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, gserrors.InternalError("rate limiter", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, gserrors.InternalError("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, path, err)
	}

	c.logger.Debug("gitlab_request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(path, resp, body)
	}

	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			return nil, gserrors.DecodeError(fmt.Sprintf("decode response from %s", path), err).
				WithDetail("path", path)
		}
	}
	return resp.Header, nil
}

// transportError classifies a failed round trip. A cancelled parent context
// is returned as is so it is never mistaken for a transient failure.
func (c *Client) transportError(parent context.Context, path string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return gserrors.TimeoutError(fmt.Sprintf("GET %s timed out after %s", path, c.timeout), err).
			WithDetail("path", path)
	}
	return gserrors.NetworkError(fmt.Sprintf("GET %s failed", path), err).
		WithDetail("path", path).
		WithSuggestion("Check the instance URL and your network connection")
}

// statusError maps a non-2xx response to a structured error.
func statusError(path string, resp *http.Response, body []byte) error {
	status := resp.StatusCode
	msg := fmt.Sprintf("GET %s: %s", path, http.StatusText(status))
	if snippet := bodySnippet(body); snippet != "" {
		msg += ": " + snippet
	}

	var e *gserrors.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = gserrors.New(gserrors.ErrCodeUnauthorized, msg, nil).
			WithSuggestion("Check that the token is valid and has the read_api scope")
	case status == http.StatusNotFound:
		e = gserrors.New(gserrors.ErrCodeNotFound, msg, nil)
	case status == http.StatusTooManyRequests:
		e = gserrors.RateLimitedError(msg, parseRetryAfter(resp.Header.Get("Retry-After")))
	case status >= 500:
		e = gserrors.New(gserrors.ErrCodeServerError, msg, nil)
	default:
		e = gserrors.New(gserrors.ErrCodeHTTPStatus, msg, nil)
	}
	return e.WithDetail("status", strconv.Itoa(status)).WithDetail("path", path)
}

func bodySnippet(body []byte) string {
	// GitLab error bodies are {"message": ...} or {"error": ...}
	var payload struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != nil {
			return fmt.Sprint(payload.Message)
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

// parseRetryAfter reads delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
