// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
)

// CodeRequestFailed marks a control request the host answered with an error.
const CodeRequestFailed = "CONTROL_REQUEST_FAILED"

// DefaultClientTimeout bounds every control request.
const DefaultClientTimeout = 5 * time.Second

// Client talks to a running host over its control socket.
type Client struct {
	socketPath string
	http       *http.Client
}

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
			Timeout: DefaultClientTimeout,
		},
	}
}

// Health queries /health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

// Status queries /status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &resp)
	return resp, err
}

// Shutdown asks the host to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/shutdown", nil, &ShutdownResponse{})
}

// Addons lists every addon the host tracks.
func (c *Client) Addons(ctx context.Context) ([]addon.Info, error) {
	var infos []addon.Info
	err := c.do(ctx, http.MethodGet, "/addons", nil, &infos)
	return infos, err
}

// Addon returns one addon by path or file name.
func (c *Client) Addon(ctx context.Context, path string) (addon.Info, error) {
	var info addon.Info
	err := c.do(ctx, http.MethodGet, "/addons/info", url.Values{"path": {path}}, &info)
	return info, err
}

// Action requests action for the addon at path.
func (c *Client) Action(ctx context.Context, action, path string) error {
	return c.do(ctx, http.MethodPost, "/addons/"+url.PathEscape(action), url.Values{"path": {path}}, &ActionResponse{})
}

// Toggle sets an on/off preference such as favorite or pause-updates.
func (c *Client) Toggle(ctx context.Context, action, path string, on bool) error {
	q := url.Values{"path": {path}, "on": {strconv.FormatBool(on)}}
	return c.do(ctx, http.MethodPost, "/addons/"+url.PathEscape(action), q, &ActionResponse{})
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := url.URL{Scheme: "http", Host: "nexus", Path: path, RawQuery: query.Encode()}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
	if err != nil {
		return oops.With("path", path).Wrap(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return oops.With("socket", c.socketPath).Wrapf(err, "connect to host")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = resp.Status
		}
		return oops.Code(CodeRequestFailed).
			With("status", resp.StatusCode).
			With("host_code", e.Code).
			Errorf("%s", e.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.With("path", path).Wrapf(err, "decode response")
	}
	return nil
}
