// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport performs the HTTP calls made by faqchat, with an
// enforced deadline for bounded calls and a distinguishable timeout error.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the transport client.
type ClientConfig struct {
	// OuterTimeout bounds every deadline call at the http.Client level
	// (default: 5s). Per-call deadlines should be shorter.
	OuterTimeout time.Duration

	// UserAgent header value (default: "faqchat")
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		OuterTimeout: 5 * time.Second,
		UserAgent:    "faqchat",
	}
}

// RequestOptions describes a single request.
type RequestOptions struct {
	Method string // default GET
	Header http.Header
	Body   []byte
}

// timer is the part of *time.Timer the deadline logic uses.
type timer interface {
	Stop() bool
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues HTTP requests for the chat and health endpoints.
//
// The Client is safe for concurrent use.
type Client struct {
	config *ClientConfig

	// httpClient carries the outer deadline; used for deadline calls.
	httpClient *http.Client
	// streamClient has no timeout; long generations are expected.
	streamClient *http.Client

	logger zerolog.Logger

	// afterFunc arms deadline timers; replaced in tests.
	afterFunc func(d time.Duration, f func()) timer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces both underlying HTTP clients' transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient.Transport = hc.Transport
		c.streamClient.Transport = hc.Transport
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new client with custom configuration.
func NewClient(config *ClientConfig, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.OuterTimeout == 0 {
		config.OuterTimeout = 5 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "faqchat"
	}

	c := &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.OuterTimeout},
		streamClient: &http.Client{},
		logger:       zerolog.Nop(),
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client configuration.
func (c *Client) Config() *ClientConfig {
	return c.config
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestWithDeadline performs one request that is cancelled if it has not
// produced a response within timeout. The timer is stopped on every exit
// path. A fired deadline surfaces as ErrTypeTimeout; other failures are
// classified by Classify. On success the caller must close the body, which
// also releases the request context.
func (c *Client) RequestWithDeadline(ctx context.Context, url string, opts RequestOptions, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithCancel(ctx)

	var fired atomic.Bool
	t := c.afterFunc(timeout, func() {
		fired.Store(true)
		cancel()
	})

	resp, err := c.send(ctx, c.httpClient, url, opts)
	stopped := t.Stop()

	if err != nil {
		cancel()
		if fired.Load() {
			c.logger.Debug().Str("url", url).Dur("timeout", timeout).Msg("request deadline elapsed")
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "request timed out after " + timeout.String(), URL: url, Cause: err}
		}
		return nil, Classify(url, err)
	}

	// The timer fired between the response arriving and Stop; the body is
	// already cancelled, so report the deadline.
	if !stopped && fired.Load() {
		resp.Body.Close()
		cancel()
		return nil, &ClientError{Type: ErrTypeTimeout, Message: "request timed out after " + timeout.String(), URL: url}
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Do performs one request with no deadline of its own. Cancellation comes
// only from ctx.
func (c *Client) Do(ctx context.Context, url string, opts RequestOptions) (*http.Response, error) {
	resp, err := c.send(ctx, c.streamClient, url, opts)
	if err != nil {
		return nil, Classify(url, err)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, hc *http.Client, url string, opts RequestOptions) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create request", URL: url, Cause: err}
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Trace().Str("method", method).Str("url", url).Msg("sending request")
	return hc.Do(req)
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckHealth issues a GET to url bounded by timeout. Any 2xx status is
// healthy; the body is ignored.
func (c *Client) CheckHealth(ctx context.Context, url string, timeout time.Duration) error {
	resp, err := c.RequestWithDeadline(ctx, url, RequestOptions{Method: http.MethodGet}, timeout)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if !IsSuccess(resp.StatusCode) {
		return &ClientError{
			Type:       ErrTypeAPI,
			Message:    "health check failed: " + resp.Status,
			StatusCode: resp.StatusCode,
			URL:        url,
		}
	}
	return nil
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// =============================================================================
// HELPERS
// =============================================================================

// cancelOnClose releases the request context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.cancel)
	return err
}

// drainAndClose reads what is left of a small body so the connection can be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64<<10))
	r.Close()
}
