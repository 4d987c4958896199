package source

import (
	"net/http"
	"time"

	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/retry"
)

// Option applies a configuration option to the TBAClient.
type Option func(*TBAClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *TBAClient) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *TBAClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetryPolicy sets the retry policy. Only transient errors are retried.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *TBAClient) {
		c.retry = p
	}
}

// WithPageParallelism sets how many team listing pages are fetched at once.
func WithPageParallelism(n int) Option {
	return func(c *TBAClient) {
		if n > 0 {
			c.pageParallel = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *TBAClient) {
		if l != nil {
			c.logger = l
		}
	}
}
