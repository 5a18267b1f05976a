// Package retry provides an explicit retry policy for transport calls.
// The policy wraps only the transport layer so retry semantics stay testable
// independently of business logic.
package retry

import (
	"context"
	"fmt"
	"time"

	"dexradar/internal/apierr"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Policy describes how transport failures are retried. Only errors for which
// apierr.IsRetryable returns true are retried; protocol and data errors
// surface immediately.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
	BackoffMult float64 // 1.0 gives a fixed delay
}

// DefaultPolicy returns the default transport retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		MaxDelay:    DefaultMaxDelay,
		BackoffMult: DefaultBackoffMult,
	}
}

// FixedPolicy returns a policy with n attempts and a fixed delay between them.
func FixedPolicy(n int, delay time.Duration) Policy {
	return Policy{MaxAttempts: n, Delay: delay, MaxDelay: delay, BackoffMult: 1.0}
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts are
// exhausted. The context cancels waits between attempts.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if p.BackoffMult > 1.0 {
				delay = time.Duration(float64(delay) * p.BackoffMult)
				if p.MaxDelay > 0 && delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !apierr.IsRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
