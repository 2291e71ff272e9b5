// Package ratelimit implements a token bucket limiter that paces
// requests against the archive's single upstream site.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Config holds limiter configuration.
type Config struct {
	// RPS is the sustained request rate. Zero or negative means
	// unlimited.
	RPS float64
	// Burst is the bucket size; values below 1 are raised to 1.
	Burst int
}

// Limiter paces outbound page fetches. All fetches go to one host, so
// a single bucket is enough.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(r, burst)}
}

// Wait blocks until a token is available, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Reserve reports how long the caller would have to wait for the next
// token without consuming one.
func (l *Limiter) Reserve() time.Duration {
	r := l.bucket.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}
