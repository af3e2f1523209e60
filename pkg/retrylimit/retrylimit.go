// Package retrylimit retries calls to rate-limited HTTP APIs behind an
// adaptive token bucket. Errors exposing a status code get 429 and 5xx
// handling; anything wrapped in FatalError stops the loop.
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a token bucket whose rate grows after quiet successes
// and shrinks on every rate-limit or server error.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	min, max  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// NewAdaptiveLimiter starts at initial requests per second, stays within
// [lo, hi], adds stepUp on success and multiplies by stepDown on failure.
func NewAdaptiveLimiter(initial, lo, hi, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	initial = max(initial, 1)
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, int(initial)),
		min:      max(lo, 1),
		max:      hi,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate unless an error was seen in the last ten seconds.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > 10*time.Second {
		a.setLimit(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.setLimit(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) setLimit(l rate.Limit) {
	l = min(max(l, a.min), a.max)
	if l == a.limiter.Limit() {
		return
	}
	a.limiter.SetLimit(l)
	a.limiter.SetBurst(max(1, int(l)))
}

// HTTPError is implemented by errors that carry an HTTP status.
type HTTPError interface {
	error
	StatusCode() int
}

// FatalError stops the retry loop; the wrapped error is returned as is.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

type backoff struct {
	attempts       int
	initial        time.Duration
	max            time.Duration
	rateLimitDelay time.Duration
	jitter         bool
	log            *slog.Logger
}

func defaultBackoff(attempts int) backoff {
	return backoff{
		attempts:       attempts,
		initial:        500 * time.Millisecond,
		max:            10 * time.Second,
		rateLimitDelay: 100 * time.Millisecond,
		jitter:         true,
		log:            slog.Default(),
	}
}

// WithRetryMax calls fn until it succeeds, returns a FatalError, ctx is done,
// or maxAttempts calls have failed. Delays double from 500ms up to 10s; 429
// responses wait a short fixed delay and slow lim down instead.
func WithRetryMax(ctx context.Context, fn func() error, lim *AdaptiveLimiter, maxAttempts int) error {
	return retry(ctx, fn, lim, defaultBackoff(maxAttempts))
}

func retry(ctx context.Context, fn func() error, lim *AdaptiveLimiter, b backoff) error {
	if b.attempts <= 0 {
		b.attempts = 1
	}
	delay := b.initial

	for attempt := 1; attempt <= b.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				b.log.Info("Retry succeeded", "attempts", attempt)
			}
			return nil
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return err
		}
		if attempt == b.attempts {
			return fmt.Errorf("max attempts (%d) exceeded: %w", b.attempts, err)
		}

		code := statusCode(err)
		wait := delay
		switch {
		case code == http.StatusTooManyRequests:
			wait = b.rateLimitDelay
			if lim != nil {
				lim.RateLimited()
			}
			b.log.Warn("Rate limited", "attempt", attempt)
		case code >= 500 && code < 600:
			if lim != nil {
				lim.RateLimited()
			}
			b.log.Warn("Server error, retrying", "attempt", attempt, "delay", delay, "error", err)
		default:
			b.log.Warn("Request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}
		if code != http.StatusTooManyRequests {
			if b.jitter {
				wait += jitter(delay)
			}
			delay = min(delay*2, b.max)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

// jitter returns up to a quarter of d.
func jitter(d time.Duration) time.Duration {
	if d < 4 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d / 4)))
}

func statusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return 0
}

// IsClientError reports whether err carries a 4xx status other than 429.
// Such requests will not succeed on retry.
func IsClientError(err error) bool {
	code := statusCode(err)
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
