// Package ratelimit enforces a minimum wall-clock interval between outbound
// requests to a single external host.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces calls so that at least the configured interval elapses
// between them. One instance guards one host: the pipeline holds one for the
// municipal portal and one for the geocoding API.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter with the given minimum interval. A non-positive
// interval disables throttling.
func New(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the interval since the previous permitted call has
// elapsed, or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
