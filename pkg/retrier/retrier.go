// Package retrier provides exponential backoff with jitter for idempotent
// calls against rate-limited HTTP APIs.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

// Defaults are sized for polling REST endpoints: a sub-second first retry,
// a ceiling well under the poll interval, and enough jitter to keep
// concurrent sessions from synchronizing their retries.
const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
	defaultMultiplier      = 2.0
	defaultMaxRetries      = 3
	defaultJitter          = 0.2
)

// Retrier re-runs a failing call with exponentially growing, jittered
// pauses. The zero number of retries means the call runs exactly once.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	maxRetries      int
	jitter          float64
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the pause before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) { r.initialInterval = d }
}

// WithMaxInterval caps the pause between retries.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) { r.maxInterval = d }
}

// WithMultiplier sets the backoff growth factor.
func WithMultiplier(m float64) Option {
	return func(r *Retrier) { r.multiplier = m }
}

// WithMaxRetries sets how many retries follow the initial attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithJitter sets the random spread applied to each pause, as a fraction
// of the pause (0.0 to 1.0).
func WithJitter(j float64) Option {
	return func(r *Retrier) { r.jitter = j }
}

// New builds a Retrier with the polling-profile defaults and any overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		multiplier:      defaultMultiplier,
		maxRetries:      defaultMaxRetries,
		jitter:          defaultJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds, the retry budget is spent, or ctx is
// cancelled. The last error is returned on exhaustion; a cancelled context
// wins over the call's own error.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	interval := r.initialInterval

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.jittered(interval)):
			}
			interval = r.grow(interval)
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

// DoWithData is Do for calls that return a value alongside the error.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// jittered spreads a pause by ±jitter, clamped at zero.
func (r *Retrier) jittered(interval time.Duration) time.Duration {
	spread := (rand.Float64()*2 - 1) * r.jitter * float64(interval)
	d := time.Duration(float64(interval) + spread)
	if d < 0 {
		return 0
	}
	return d
}

// grow advances the backoff interval, capped at the maximum.
func (r *Retrier) grow(interval time.Duration) time.Duration {
	next := time.Duration(float64(interval) * r.multiplier)
	if next > r.maxInterval {
		return r.maxInterval
	}
	return next
}
