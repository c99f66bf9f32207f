package client

import (
	"context"
	"net/http"
)

// Ping reports whether the API answers. It tries {prefix}/health, then the
// server root, each bounded by the ping timeout, and returns true on the first
// 2xx reply.
func (c *Client) Ping(ctx context.Context) bool {
	candidates := []string{
		joinURL(c.baseURL, c.prefix, "health"),
		c.baseURL + "/",
	}
	for _, u := range candidates {
		_, err := c.do(ctx, request{method: http.MethodGet, url: u, timeout: c.pingTimeout})
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}
