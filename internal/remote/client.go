// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package remote is the HTTP client used to query update sources and
// download addon builds. Requests are rate limited per client and retried
// with exponential backoff on transient failures.
package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Error codes for remote failures.
const (
	CodeRequestFailed = "REMOTE_REQUEST_FAILED"
	CodeBadStatus     = "REMOTE_BAD_STATUS"
	CodeNotJSON       = "REMOTE_NOT_JSON"
	CodeWriteFailed   = "REMOTE_WRITE_FAILED"
)

// Default client settings.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 3
	DefaultBackoff    = 250 * time.Millisecond
	DefaultRate       = 2.0
	DefaultBurst      = 4
	DefaultUserAgent  = "Nexus"
	maxResponseLength = 8 << 20
)

// Client issues GET requests against a base URL. Absolute endpoints bypass
// the base URL.
type Client struct {
	base      string
	http      *http.Client
	limiter   *rate.Limiter
	retries   uint64
	backoff   time.Duration
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRateLimit sets the sustained request rate and burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetries sets how many times a transient failure is retried and the
// initial backoff between attempts.
func WithRetries(n uint64, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.retries = n
		cl.backoff = backoff
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// New creates a client for base.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:      strings.TrimRight(base, "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(DefaultRate), DefaultBurst),
		retries:   DefaultRetries,
		backoff:   DefaultBackoff,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL resolves endpoint against the client's base.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if c.base == "" {
		return endpoint
	}
	return c.base + "/" + strings.TrimLeft(endpoint, "/")
}

// Get fetches endpoint and returns its body, which must be JSON.
func (c *Client) Get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	var body []byte
	err := c.do(ctx, endpoint, func(resp *http.Response) error {
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLength))
		if err != nil {
			return retry.RetryableError(err)
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, oops.Code(CodeNotJSON).
			With("url", c.URL(endpoint)).
			Errorf("response is not JSON")
	}
	return json.RawMessage(body), nil
}

// Download writes the body of endpoint to path, replacing any existing
// file. A partial file is removed on failure.
func (c *Client) Download(ctx context.Context, path, endpoint string) error {
	err := c.do(ctx, endpoint, func(resp *http.Response) error {
		f, err := os.Create(path) //nolint:gosec // path is chosen by the update orchestrator
		if err != nil {
			return oops.Code(CodeWriteFailed).With("path", path).Wrap(err)
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			_ = f.Close()
			return retry.RetryableError(oops.Code(CodeWriteFailed).With("path", path).Wrap(err))
		}
		if err := f.Close(); err != nil {
			return oops.Code(CodeWriteFailed).With("path", path).Wrap(err)
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// do performs a GET with rate limiting and retries, handing successful
// responses to handle.
func (c *Client) do(ctx context.Context, endpoint string, handle func(*http.Response) error) error {
	url := c.URL(endpoint)
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return oops.Code(CodeRequestFailed).With("url", url).Wrap(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return oops.Code(CodeRequestFailed).With("url", url).Wrap(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(oops.Code(CodeRequestFailed).With("url", url).Wrap(err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			statusErr := oops.Code(CodeBadStatus).
				With("url", url).
				With("status", resp.StatusCode).
				Errorf("unexpected status %d", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}
		return handle(resp)
	})
}
