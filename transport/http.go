package transport

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds one request when the caller passes no timeout.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxBody limits how much of a response body is read.
	DefaultMaxBody = 16 << 20
)

// HTTP is a Transport over net/http.
type HTTP struct {
	client  *http.Client
	headers map[string]string
	memo    *Memo
	maxBody int64
}

// Option configures HTTP.
type Option func(*HTTP)

// WithClient replaces the underlying *http.Client.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) { h.client = c }
}

// WithHeaders sets headers sent with every request. Per-request headers win
// on conflict.
func WithHeaders(headers map[string]string) Option {
	return func(h *HTTP) { h.headers = maps.Clone(headers) }
}

// WithMemo enables the short-lived response memo.
func WithMemo(m *Memo) Option {
	return func(h *HTTP) { h.memo = m }
}

// WithMaxBody limits response body size.
func WithMaxBody(n int64) Option {
	return func(h *HTTP) { h.maxBody = n }
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client:  &http.Client{},
		maxBody: DefaultMaxBody,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

type bypassKey struct{}

// Bypass returns a context whose requests skip memoized responses. Their
// fresh responses still replace the memoized ones.
func Bypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

func bypassed(ctx context.Context) bool {
	b, _ := ctx.Value(bypassKey{}).(bool)
	return b
}

// Request performs a GET. When a memo is configured, identical requests
// within the memo TTL are answered from it and identical concurrent
// requests share one round trip.
func (h *HTTP) Request(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	if h.memo == nil {
		return h.do(ctx, url, headers, timeout)
	}
	key := memoKey(url, headers)
	if bypassed(ctx) {
		body, err := h.do(ctx, url, headers, timeout)
		if err == nil {
			h.memo.Set(key, body)
		}
		return body, err
	}
	return h.memo.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		return h.do(ctx, url, headers, timeout)
	})
}

func (h *HTTP) do(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody))
	if err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	return body, nil
}

// volatileHeaders change with every request without changing the response,
// so they are left out of memo keys.
var volatileHeaders = map[string]bool{
	"X-Request-Id": true,
	"Traceparent":  true,
	"Tracestate":   true,
	"Baggage":      true,
}

func memoKey(url string, headers map[string]string) string {
	var b strings.Builder
	b.WriteString(url)
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		if volatileHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(headers[k])
	}
	return b.String()
}
