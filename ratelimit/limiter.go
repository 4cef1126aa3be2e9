// Package ratelimit gates outbound catalog requests per content source with a
// token bucket backed by golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter that paces requests to one source.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps requests per second with the
// given burst size. A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), max(burst, 1))}
}

// Allow reports whether a single request may proceed right now.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
