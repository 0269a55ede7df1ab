package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/logging"
)

// RetryPolicy configures the retry/backoff behavior applied to every native
// client invocation. The policy is stateless; a single value can safely be
// shared across call sites.
//
// The delay before attempt n (n >= 2) is
// BaseDelay * Multiplier^(n-2), capped at MaxDelay, with ±Jitter fraction of
// random spread to avoid synchronized retry storms.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls made, first try included.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth. Zero means no cap.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff factor; values below 1 fall
	// back to 2.
	Multiplier float64
	// Jitter is the fraction (0..1) of random spread applied to each delay.
	Jitter float64
	// Timeout bounds each individual attempt. Exceeding it counts as a
	// transient failure. Zero disables the per-attempt timeout.
	Timeout time.Duration
}

// DefaultRetryPolicy returns the policy used when none is supplied: three
// attempts, 100ms base delay doubling per attempt, 25% jitter, 30s per-call
// timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.25,
		Timeout:     30 * time.Second,
	}
}

// delay computes the backoff before the given retry (attempt counts from 2).
func (p RetryPolicy) delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-2))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		spread := d * p.Jitter
		d += (rand.Float64()*2 - 1) * spread
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// do runs op under the policy. Only transient client errors are retried;
// permanent errors and context cancellation surface immediately. A
// per-attempt timeout is converted into a transient client error so it
// participates in the retry budget.
func (p RetryPolicy) do(ctx context.Context, dependency string, logger logging.Logger, op Op) (any, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := p.delay(attempt)
			logger.Debug("client.retry",
				"dependency", dependency,
				"attempt", attempt,
				"max_attempts", attempts,
				"delay_ms", wait.Milliseconds(),
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		out, err := p.attempt(ctx, dependency, op)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !core.IsTransient(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	logger.Warn("client.retry.exhausted",
		"dependency", dependency,
		"attempts", attempts,
		"error", lastErr.Error(),
	)
	return nil, lastErr
}

// attempt executes one call with the per-attempt timeout applied.
func (p RetryPolicy) attempt(ctx context.Context, dependency string, op Op) (any, error) {
	callCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	out, err := op(callCtx)
	if err == nil {
		return out, nil
	}

	// A deadline hit on the attempt context (but not the parent) is a
	// transient dependency timeout, eligible for retry.
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		var ce *core.ClientError
		if !errors.As(err, &ce) {
			err = core.NewTransientError(dependency, err)
		}
	}
	return nil, err
}
