// Package ifapi provides the per-request InsightFinder backend client.
// Clients are never shared between requests: each inbound request carries
// its own credentials and gets its own Client, scoped to that request's
// context.
package ifapi

import (
	"net/http"
	"strings"
	"time"
)

// Client holds the backend credentials and connection settings for a
// single inbound request.
type Client struct {
	// LicenseKey authenticates the caller against the backend API.
	LicenseKey string
	// UserName is the backend account the query runs as.
	UserName string
	// APIURL is the backend base URL, without a trailing slash.
	APIURL string

	// HTTPClient performs outbound calls. It carries the configured
	// backend timeout.
	HTTPClient *http.Client

	// TimeOffset is added to caller-supplied timestamps before they are
	// sent to the backend, compensating for the backend's fixed-offset
	// clock.
	TimeOffset time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// WithTimeout sets the outbound request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.HTTPClient == nil {
			c.HTTPClient = &http.Client{}
		}
		c.HTTPClient.Timeout = d
	}
}

// WithTimeOffset sets the timestamp correction offset.
func WithTimeOffset(d time.Duration) Option {
	return func(c *Client) {
		c.TimeOffset = d
	}
}

// NewClient builds a Client for one request's credentials.
func NewClient(licenseKey, userName, apiURL string, opts ...Option) *Client {
	c := &Client{
		LicenseKey: licenseKey,
		UserName:   userName,
		APIURL:     strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CorrectTimestamp applies the configured backend clock offset to a
// caller-supplied time.
func (c *Client) CorrectTimestamp(t time.Time) time.Time {
	return t.Add(c.TimeOffset)
}

// CorrectTimestampMillis applies the offset to a Unix-millisecond
// timestamp, the unit the backend API expects.
func (c *Client) CorrectTimestampMillis(ms int64) int64 {
	return ms + c.TimeOffset.Milliseconds()
}
