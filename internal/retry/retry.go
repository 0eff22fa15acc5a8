// Package retry runs network operations with bounded exponential backoff.
package retry

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultMaxRetries is the total number of attempts made by Do.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the wait after the first failed attempt.
	DefaultBaseDelay = time.Second
)

// Options configures a retry loop. Zero values take the defaults.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	return o
}

// Delay returns the backoff before attempt+1: base * 2^(attempt-1).
func Delay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Do calls op until it succeeds or MaxRetries attempts have failed. The
// error of the final attempt is returned as-is so callers can compare it
// against sentinel values. A cancelled context during backoff returns
// ctx.Err().
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= opts.MaxRetries {
			return zero, err
		}

		wait := Delay(opts.BaseDelay, attempt)
		log.Printf("retry: attempt %d/%d failed: %v — retrying in %v",
			attempt, opts.MaxRetries, err, wait)

		if serr := opts.Sleep(ctx, wait); serr != nil {
			return zero, serr
		}
	}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	_, err := Do(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
