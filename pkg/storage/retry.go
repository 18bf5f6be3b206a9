package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
)

// RetryPolicy parameterizes the retry-with-backoff loop applied to every
// store operation the batched query engine issues.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts int

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// Multiplier is the factor the delay grows by between consecutive retries.
	Multiplier float64

	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration

	// sleep is the delay hook. Tests replace it to observe the schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy mirrors the retry behavior the production services have
// always run with: three attempts, 100ms initial delay, doubling up to 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
	}
}

// newBackOff builds the delay schedule for one operation. Jitter is disabled
// so the schedule is fully determined by the policy parameters.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryTransient runs op until it succeeds, fails with a non-transient error,
// or the policy's attempts are exhausted. On exhaustion the error of the
// last attempt is returned as-is so the root cause is preserved. Caller
// cancellation and deadline expiry stop the loop immediately with ctx.Err(),
// which is distinct from any store-reported deadline error.
func RetryTransient[T any](ctx context.Context, policy RetryPolicy, log logger.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	sleep := policy.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	bo := policy.newBackOff()
	for attempt := 1; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) || attempt >= policy.MaxAttempts {
			return zero, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			return zero, err
		}
		log.WarnWithContext(ctx, "retrying after transient storage error",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}
