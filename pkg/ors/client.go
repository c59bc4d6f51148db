// Package ors is a thin client for the OpenRouteService directions and
// isochrones endpoints, using a cycling profile.
package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/resilience"
)

const defaultBaseURL = "https://api.openrouteservice.org"

// Client calls the OpenRouteService API. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	profile    string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests point this at httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithProfile sets the routing profile (default cycling-regular).
func WithProfile(p string) Option {
	return func(c *Client) { c.profile = p }
}

// NewClient creates an ORS client. The API key is required; a missing key
// is a configuration error surfaced before any batch starts.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.New("ors: api key is empty")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		profile:    "cycling-regular",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// postJSON sends a JSON POST and decodes the response into out. Responses
// with 429/5xx status become transient errors so callers can retry;
// other non-2xx statuses are hard failures.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "ors: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "ors: build request")
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json, application/geo+json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "ors: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "ors: read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("ors: %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "ors: parse response")
	}
	return nil
}
