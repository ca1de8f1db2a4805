// Package ratelimit implements a token bucket rate limiter keyed by source,
// so a slow or strict provider never starves the others.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/envimetry/pipeline/internal/metrics"
)

// Config holds rate limiter configuration. SourceRPS overrides the default
// for individual sources.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
	SourceRPS    map[string]float64
}

// Limiter manages per-source token buckets.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
	overrides    map[string]float64
}

// New creates a Limiter. A non-positive DefaultRPS disables limiting.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
		overrides:    cfg.SourceRPS,
	}
}

// Wait blocks until a token is available for the source, respecting the
// context deadline.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[source]
	if !ok {
		r := l.defaultRate
		if rps, ok := l.overrides[source]; ok && rps > 0 {
			r = rate.Limit(rps)
		}
		limiter = rate.NewLimiter(r, l.defaultBurst)
		l.limiters[source] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", source, err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(source, d)
	}
	return nil
}
