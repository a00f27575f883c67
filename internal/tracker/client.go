// Package tracker is a client for the SpaceBridge issue-tracking REST API.
//
// The client is stateless apart from its configuration: callers pass the
// organization/project scope on every call. Reads (search, get, version)
// are retried on transient failures; writes are sent once.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultBaseURL is used when no tracker URL is configured.
	DefaultBaseURL = "https://spacebridge.io"

	apiPrefix      = "/api/v1"
	defaultTimeout = 30 * time.Second

	// readRetryMaxElapsed bounds how long an idempotent read is retried.
	readRetryMaxElapsed = 10 * time.Second
)

var (
	// ErrAPIKeyRequired is returned by NewClient when no API key is set.
	ErrAPIKeyRequired = errors.New("SpaceBridge API key not configured")

	// ErrProjectRequired is returned by CreateIssue when no project scope
	// could be resolved.
	ErrProjectRequired = errors.New("project name is required to create an issue")

	// ErrNoUpdateFields is returned by UpdateIssue when nothing would change.
	ErrNoUpdateFields = errors.New("no fields provided to update")
)

// APIError is a non-2xx response from the tracker.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("SpaceBridge API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the tracker root, with or without the /api/v1 suffix.
	BaseURL string
	// APIKey is sent as a bearer token. Required.
	APIKey string
	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient overrides the transport (tests). Timeout is ignored when set.
	HTTPClient *http.Client
	// UserAgent is sent on every request.
	UserAgent string
	Logger    *slog.Logger
}

// Client talks to one SpaceBridge instance.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	logger    *slog.Logger

	// readBackoff returns a fresh policy per read; BackOff values are stateful.
	readBackoff func() backoff.BackOff
}

// NewClient validates cfg and returns a ready Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set SPACEBRIDGE_API_KEY or pass --spacebridge-api-key", ErrAPIKeyRequired)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "spacebridge-mcp"
	}

	return &Client{
		baseURL:     NormalizeBaseURL(cfg.BaseURL),
		apiKey:      cfg.APIKey,
		userAgent:   userAgent,
		http:        httpClient,
		logger:      logger,
		readBackoff: newReadBackoff,
	}, nil
}

func newReadBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = readRetryMaxElapsed
	return bo
}

// NormalizeBaseURL strips trailing slashes and makes sure the URL ends
// with the /api/v1 prefix.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		u = DefaultBaseURL
	}
	u = strings.TrimRight(u, "/")
	if !strings.HasSuffix(u, apiPrefix) {
		u += apiPrefix
	}
	return u
}

// BaseURL returns the normalized API root the client sends requests to.
func (c *Client) BaseURL() string { return c.baseURL }

// SearchIssues runs a full-text or similarity search. Results keep the
// order the tracker returned them in (descending relevance).
func (c *Client) SearchIssues(ctx context.Context, p SearchParams) ([]Issue, error) {
	searchType := p.Type
	if searchType == "" {
		searchType = SearchSimilarity
	}

	q := url.Values{}
	q.Set("query", p.Query)
	q.Set("search_type", string(searchType))
	setScope(q, p.Scope)
	setIfPresent(q, "status", p.Status)
	setIfPresent(q, "assignee", p.Assignee)
	setIfPresent(q, "priority", p.Priority)
	if len(p.Labels) > 0 {
		q.Set("labels", strings.Join(p.Labels, ","))
	}

	c.logger.Debug("searching issues", "search_type", searchType, "org", p.Scope.Org, "project", p.Scope.Project)

	body, err := c.read(ctx, "issues/search", q, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeSearch(body)
}

// GetIssue fetches a single issue by id.
func (c *Client) GetIssue(ctx context.Context, id string, scope Scope) (Issue, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("issue id is required")
	}
	q := url.Values{}
	setScope(q, scope)

	body, err := c.read(ctx, "issues/"+url.PathEscape(id), q, nil)
	if err != nil {
		return nil, err
	}
	return decodeIssue(body)
}

// CreateIssue creates a new issue. The organization is sent as an empty
// string when unknown; the project is mandatory.
func (c *Client) CreateIssue(ctx context.Context, p CreateParams) (Issue, error) {
	if p.Scope.Project == "" {
		return nil, ErrProjectRequired
	}

	payload := map[string]any{
		"title":        p.Title,
		"description":  p.Description,
		"organization": p.Scope.Org,
		"project":      p.Scope.Project,
	}
	if len(p.Labels) > 0 {
		payload["labels"] = p.Labels
	}
	if p.Assignee != "" {
		payload["assignee"] = p.Assignee
	}
	if p.Priority != "" {
		payload["priority"] = p.Priority
	}
	if p.Status != "" {
		payload["status"] = p.Status
	}

	c.logger.Info("creating issue", "org", p.Scope.Org, "project", p.Scope.Project)

	body, err := c.do(ctx, http.MethodPost, "issues", nil, payload, nil)
	if err != nil {
		return nil, err
	}
	return decodeIssue(body)
}

// UpdateIssue replaces the supplied fields of an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, id string, p UpdateParams) (Issue, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("issue id is required")
	}
	payload := p.Fields()
	if len(payload) == 0 {
		return nil, ErrNoUpdateFields
	}
	if p.Scope.Org != "" {
		payload["organization"] = p.Scope.Org
	}
	if p.Scope.Project != "" {
		payload["project"] = p.Scope.Project
	}

	c.logger.Info("updating issue", "issue", id, "fields", len(p.Fields()))

	// The tracker rejects PATCH on this route; updates go through PUT.
	body, err := c.do(ctx, http.MethodPut, "issues/"+url.PathEscape(id), nil, payload, nil)
	if err != nil {
		return nil, err
	}
	return decodeIssue(body)
}

// Version performs the version handshake, announcing the client version
// and startup scope in X-Client-* headers.
func (c *Client) Version(ctx context.Context, clientVersion string, scope Scope) (VersionInfo, error) {
	headers := http.Header{}
	headers.Set("X-Client-Version", clientVersion)
	if scope.Org != "" {
		headers.Set("X-Client-Organization", scope.Org)
	}
	if scope.Project != "" {
		headers.Set("X-Client-Project", scope.Project)
	}

	body, err := c.read(ctx, "version", nil, headers)
	if err != nil {
		return VersionInfo{}, err
	}
	var info VersionInfo
	if len(body) == 0 {
		return info, nil
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return VersionInfo{}, fmt.Errorf("parsing version response: %w", err)
	}
	return info, nil
}

// read is a GET retried with backoff on transient failures.
func (c *Client) read(ctx context.Context, path string, q url.Values, headers http.Header) ([]byte, error) {
	var body []byte
	err := backoff.Retry(func() error {
		b, err := c.do(ctx, http.MethodGet, path, q, nil, headers)
		if err == nil {
			body = b
			return nil
		}
		if isRetryable(ctx, err) {
			c.logger.Debug("retrying tracker read", "path", path, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(c.readBackoff(), ctx))
	return body, err
}

// isRetryable reports whether a failed request is worth repeating:
// rate limiting, server errors and transport failures, but never a
// cancelled or expired context.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// do sends one request and returns the response body. A 204 yields a nil
// body; any status >= 300 yields an *APIError.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, payload any, headers http.Header) ([]byte, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return data, nil
}

// decodeSearch accepts either a bare JSON list or an object wrapping the
// list under "results". Anything else is logged and treated as no results.
func (c *Client) decodeSearch(body []byte) ([]Issue, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []Issue{}, nil
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if res, ok := v["results"].([]any); ok {
			items = res
		} else {
			c.logger.Warn("unexpected search response shape; treating as no results", "keys", len(v))
			return []Issue{}, nil
		}
	default:
		c.logger.Warn("unexpected search response type; treating as no results", "type", fmt.Sprintf("%T", raw))
		return []Issue{}, nil
	}

	issues := make([]Issue, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			c.logger.Warn("skipping non-object search result", "type", fmt.Sprintf("%T", item))
			continue
		}
		issues = append(issues, Issue(m))
	}
	return issues, nil
}

func decodeIssue(body []byte) (Issue, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Issue{}, nil
	}
	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parsing issue response: %w", err)
	}
	if issue == nil {
		issue = Issue{}
	}
	return issue, nil
}

func setScope(q url.Values, s Scope) {
	setIfPresent(q, "organization", s.Org)
	setIfPresent(q, "project", s.Project)
}

func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
