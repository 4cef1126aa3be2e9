// Package transport performs the engine's outbound requests. It does no
// retrying of its own: a failed request is returned as-is and the retry
// executor decides what happens next.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Transport fetches a URL and returns the raw response body.
type Transport interface {
	Request(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error)

// Request calls f.
func (f Func) Request(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	return f(ctx, url, headers, timeout)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: %s: status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.Code }
