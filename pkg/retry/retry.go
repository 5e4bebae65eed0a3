// Package retry implements the reconnect/backoff policy (C11) for dialing a
// cluster node, adapted from the teacher's pkg/util/workers.Retry /
// RateLimitedRetry. The worker-pool fan-out those functions shared their
// backoff with is dropped: spec.md §5 mandates single-threaded, synchronous
// scheduling, so there is only ever one caller retrying one dial at a time.
// The MOVED/ASK rewind pkg/clusterpipe performs on every redirect is a
// separate, non-sleeping path — this package is only for transient
// connection failures when acquiring a node.
package retry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Config mirrors the teacher's RetryConfig shape.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the backoff policy used for cluster node dials
// unless overridden by internal/config's dial_retries setting.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Do executes fn with exponential backoff between attempts, up to
// cfg.MaxAttempts.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("max dial attempts exceeded: %w", lastErr)
}

// RateLimited combines a dial rate limiter with Do, capping how often this
// process is allowed to attempt fresh connections to cluster nodes.
func RateLimited(ctx context.Context, limiter *rate.Limiter, cfg Config, fn func() error) error {
	return Do(ctx, cfg, func() error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn()
	})
}
