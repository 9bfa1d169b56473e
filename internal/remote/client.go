// Package remote talks to the Skript parse service and the syntax catalog
// service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/akhenakh/skriptls/internal/catalog"
	"github.com/akhenakh/skriptls/internal/diagnostic"
)

// DefaultCatalogURL is the public syntax catalog.
const DefaultCatalogURL = "https://skripthub.net/api/v1/addonsyntaxlist/"

const maxBodySize = 32 << 20

// ErrMalformedResponse is returned when a service answers with a body that
// does not have the expected shape.
var ErrMalformedResponse = errors.New("remote: malformed response")

// StatusError is returned when a service answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s returned status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ParseResult is the analysis of one script.
type ParseResult struct {
	Errors   []diagnostic.Diagnostic
	Warnings []diagnostic.Diagnostic
}

// Client calls the remote services. It is safe for concurrent use.
type Client struct {
	http       *http.Client
	catalogURL string
	timeout    time.Duration
	userAgent  string
	logger     *zap.Logger
	group      singleflight.Group
}

var _ catalog.Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCatalogURL overrides DefaultCatalogURL.
func WithCatalogURL(u string) Option {
	return func(c *Client) { c.catalogURL = u }
}

// WithTimeout bounds each call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client for the remote services.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:       http.DefaultClient,
		catalogURL: DefaultCatalogURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CatalogURL returns the catalog endpoint in use.
func (c *Client) CatalogURL() string { return c.catalogURL }

type parseRequest struct {
	Script string `json:"script"`
}

type parseResponse struct {
	Errors   *[]diagnostic.Diagnostic `json:"errors"`
	Warnings *[]diagnostic.Diagnostic `json:"warnings"`
}

// Parse posts script to parseURL and decodes the errors and warnings.
func (c *Client) Parse(ctx context.Context, parseURL, script string) (*ParseResult, error) {
	body, err := json.Marshal(parseRequest{Script: script})
	if err != nil {
		return nil, fmt.Errorf("encoding parse request: %w", err)
	}

	c.logger.Debug("parse request", zap.String("url", parseURL), zap.Int("size", len(script)))
	raw, err := c.do(ctx, http.MethodPost, parseURL, body)
	if err != nil {
		return nil, err
	}

	var resp parseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Errors == nil || resp.Warnings == nil {
		return nil, fmt.Errorf("%w: missing errors or warnings", ErrMalformedResponse)
	}
	c.logger.Debug("parse response",
		zap.Int("errors", len(*resp.Errors)),
		zap.Int("warnings", len(*resp.Warnings)))
	return &ParseResult{Errors: *resp.Errors, Warnings: *resp.Warnings}, nil
}

// FetchCatalog downloads the syntax catalog. Concurrent calls share one
// request; a caller giving up does not cancel it for the others.
func (c *Client) FetchCatalog(ctx context.Context) ([]catalog.SyntaxEntry, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.catalogURL, func() (any, error) {
		raw, err := c.do(fetchCtx, http.MethodGet, c.catalogURL, nil)
		if err != nil {
			return nil, err
		}
		var entries []catalog.SyntaxEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetching catalog: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("catalog fetch shared")
		}
		return res.Val.([]catalog.SyntaxEntry), nil
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("request to %s timed out after %v: %w", url, time.Since(start).Round(time.Millisecond), err)
		}
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: runewidth.Truncate(strings.TrimSpace(string(raw)), 200, "...")}
	}
	return raw, nil
}
