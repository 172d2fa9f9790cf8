package transport

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a classic token bucket: capacity tokens,
// replenished uniformly over period (spec §6, §9).
type RateLimiterConfig struct {
	Capacity int
	Period   time.Duration
}

// DefaultRateLimiterConfig is 100 tokens per 60s (spec §6).
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{Capacity: 100, Period: 60 * time.Second}
}

// RateLimiter wraps golang.org/x/time/rate.Limiter — a direct dependency
// of the teacher's go.mod — as the token bucket spec §9 describes: a
// non-blocking TryAcquire plus a blocking Wait, both delegating to the
// underlying rate.Limiter.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter from cfg.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.Period <= 0 {
		cfg.Period = 60 * time.Second
	}
	refillRate := rate.Limit(float64(cfg.Capacity) / cfg.Period.Seconds())
	return &RateLimiter{limiter: rate.NewLimiter(refillRate, cfg.Capacity)}
}

// TryAcquire is the non-blocking acquire: (true, 0) if a token was taken,
// (false, retryAfter) otherwise.
func (r *RateLimiter) TryAcquire() (bool, time.Duration) {
	reservation := r.limiter.Reserve()
	if !reservation.OK() {
		return false, 0
	}
	delay := reservation.Delay()
	if delay <= 0 {
		return true, 0
	}
	reservation.Cancel()
	return false, delay
}

// Wait blocks until a token is available or ctx is cancelled (spec §6:
// "Rate-limit acquisition precedes each request ... blocks until a token
// is available").
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
