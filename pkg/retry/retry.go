// Package retry runs operations until they succeed, with an exponential delay between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
)

// Unbounded is the MaxAttempts of a policy that retries until the context is done.
const Unbounded = 1<<31 - 1

// ErrPermanent marks errors that must not be retried.
const ErrPermanent = errs.ErrorKind("permanent error")

type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: Unbounded,
		Delay:       time.Second,
		Multiplier:  2,
		MaxDelay:    30 * time.Second,
	}
}

// Permanent stops Do from retrying err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errs.WithKind(err, ErrPermanent)
}

// Backoff returns the delay before retry number attempt, starting at 1.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.Delay)
	multiplier := max(p.Multiplier, 1)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return time.Duration(delay)
}

// Do calls fn until it returns nil, a permanent error, or the attempts run out.
// The returned error is the last error of fn, or the context error if ctx is done while waiting.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	maxAttempts := max(policy.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrPermanent) || attempt >= maxAttempts {
			return err
		}

		delay := policy.Backoff(attempt)
		logger.DebugContext(ctx, "Retrying",
			slogx.Int("attempt", attempt),
			slogx.Duration("delay", delay),
			slogx.Error(err),
		)
		if sleepErr := Sleep(ctx, delay); sleepErr != nil {
			return errors.Wrapf(sleepErr, "gave up after %d attempts, last error: %v", attempt, err)
		}
	}
}

// DoValue is Do for operations returning a value.
func DoValue[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, policy, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return errors.WithStack(ctx.Err())
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-timer.C:
		return nil
	}
}
