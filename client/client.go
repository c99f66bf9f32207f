package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPrefix is the route prefix the API is mounted under.
	DefaultPrefix = "/api"
	// DefaultTimeout bounds every request except Ping.
	DefaultTimeout = 8 * time.Second
	// DefaultPingTimeout bounds each Ping candidate.
	DefaultPingTimeout = 2 * time.Second

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

// TokenSource yields the bearer credential to attach to requests. An empty
// token means the request is sent without Authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a TokenSource that always yields tok.
func StaticToken(tok string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return tok, nil })
}

// Client is an API client bound to one base URL and prefix.
type Client struct {
	baseURL     string
	prefix      string
	timeout     time.Duration
	pingTimeout time.Duration
	httpClient  *http.Client
	tokens      TokenSource
	log         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPrefix sets the route prefix. A trailing slash is removed; "" mounts
// routes at the root.
func WithPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = strings.TrimRight(prefix, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPingTimeout sets the timeout for each Ping candidate.
func WithPingTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingTimeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenSource sets where bearer credentials come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		prefix:      DefaultPrefix,
		timeout:     DefaultTimeout,
		pingTimeout: DefaultPingTimeout,
		httpClient:  &http.Client{},
		log:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Prefix returns the configured route prefix.
func (c *Client) Prefix() string { return c.prefix }

// URL returns the absolute URL of an API route, e.g. URL("auth/login").
func (c *Client) URL(route string) string {
	return joinURL(c.baseURL, c.prefix, route)
}

// joinURL joins base and parts with exactly one slash between each, dropping
// empty parts.
func joinURL(base string, parts ...string) string {
	b := strings.TrimRight(base, "/")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return b + "/" + strings.Join(kept, "/")
}

type request struct {
	method      string
	url         string
	body        io.Reader
	contentType string
	auth        bool
	timeout     time.Duration
	// fallback is the error detail used when the server sends an empty body.
	fallback string
}

// do sends r and returns the response body of a 2xx reply.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", r.url, err)
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth && c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			c.log.Warn("client.token.fail", slog.String("request_id", reqID), slog.String("error", err.Error()))
		} else if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("client.request.fail",
			slog.String("request_id", reqID),
			slog.String("method", r.method),
			slog.String("url", r.url),
			slog.String("error", err.Error()),
		)
		return nil, &NetworkError{URL: r.url, BaseURL: c.baseURL, Prefix: c.prefix, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("client.request.done",
		slog.String("request_id", reqID),
		slog.String("method", r.method),
		slog.String("url", r.url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ServerError{Status: resp.StatusCode, Detail: errorDetail(body, r.fallback, resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: r.url, BaseURL: c.baseURL, Prefix: c.prefix, Err: err}
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, route string, in any, out any, auth bool, fallback string) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		url:         c.URL(route),
		body:        bytes.NewReader(payload),
		contentType: "application/json",
		auth:        auth,
		fallback:    fallback,
	})
	if err != nil {
		return err
	}
	return decodeJSON(body, out)
}

func decodeJSON(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

// errorDetail extracts a human-readable message from an error body: the
// "detail" field of a JSON object, else the raw JSON, else the trimmed text,
// else fallback with the status code.
func errorDetail(body []byte, fallback string, status int) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			if raw, ok := obj["detail"]; ok {
				var s string
				if err := json.Unmarshal(raw, &s); err == nil {
					if s != "" {
						return s
					}
				} else if !isEmptyJSON(raw) {
					return string(compactJSON(raw))
				}
			}
		}
		return string(compactJSON(trimmed))
	}
	if len(trimmed) > 0 {
		return string(trimmed)
	}
	if fallback == "" {
		fallback = "request failed"
	}
	return fmt.Sprintf("%s (%d)", fallback, status)
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "null", "false", "0", `""`:
		return true
	}
	return false
}

func compactJSON(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// isTimeout reports whether err came from an expired deadline.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
