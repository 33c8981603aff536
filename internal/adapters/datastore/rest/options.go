package rest

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSchemaPath overrides the REST prefix, "/rest/v1" by default.
func WithSchemaPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.prefix = p
		}
	}
}
