// Package api speaks the school administration REST API.
package api

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

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/Veraticus/schoolctl/internal/common"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 4 << 20

// Client is an authenticated REST client.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	tokens     oauth2.TokenSource
	transport  http.RoundTripper
	timeout    time.Duration
	pageBase   int
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource authenticates requests with bearer tokens from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithPageBase sets the index of the first page on the wire (0 or 1).
func WithPageBase(base int) Option {
	return func(c *Client) { c.pageBase = base }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", common.ErrInvalidConfig, baseURL)
	}

	c := &Client{
		base:      u,
		timeout:   DefaultTimeout,
		pageBase:  1,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pageBase != 0 && c.pageBase != 1 {
		return nil, fmt.Errorf("%w: page base must be 0 or 1, got %d", common.ErrInvalidConfig, c.pageBase)
	}

	var rt http.RoundTripper = &requestIDTransport{base: c.transport}
	if c.tokens != nil {
		rt = &oauth2.Transport{Source: c.tokens, Base: rt}
	}
	c.httpClient = &http.Client{Transport: rt, Timeout: c.timeout}
	return c, nil
}

// PageBase returns the wire index of the first page.
func (c *Client) PageBase() int { return c.pageBase }

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs one JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := errorFromResponse(method, path, resp.StatusCode, data)
		common.LogDebug("api request failed", common.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"kind":   apiErr.Kind.String(),
		})
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// transportError classifies a failure to get any response.
func transportError(method, path string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotAuthenticated), errors.Is(err, common.ErrSessionExpired):
		return &Error{Kind: KindAuth, Method: method, Path: path, Err: err}
	case errors.Is(err, context.Canceled):
		return err
	default:
		return &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
	}
}

// requestIDTransport stamps a correlation id on every request and logs the
// round trip.
type requestIDTransport struct {
	base http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	fields := common.Fields{
		"method":     req.Method,
		"path":       req.URL.Path,
		"request_id": id,
		"duration":   time.Since(start).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		common.LogDebug("api round trip failed", fields)
		return nil, err
	}
	fields["status"] = resp.StatusCode
	common.LogDebug("api round trip", fields)
	return resp, nil
}
