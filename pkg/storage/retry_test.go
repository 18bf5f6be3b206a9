package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
)

// recordingPolicy returns a policy whose sleeps are captured instead of
// actually waiting.
func recordingPolicy(maxAttempts int, delays *[]time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     maxAttempts,
		InitialInterval: 100 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     250 * time.Millisecond,
		sleep: func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		},
	}
}

func TestRetryTransientDelaySchedule(t *testing.T) {
	var delays []time.Duration
	policy := recordingPolicy(4, &delays)

	attempts := 0
	_, err := RetryTransient(context.Background(), policy, logger.NewNoopLogger(), func(context.Context) (int, error) {
		attempts++
		return 0, MarkTransient(errors.New("flaky"))
	})

	require.Error(t, err)
	require.Equal(t, 4, attempts)
	// Exponential growth from the initial interval, capped at the maximum.
	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		250 * time.Millisecond,
	}, delays)
}

func TestRetryTransientSucceedsAfterFailures(t *testing.T) {
	var delays []time.Duration
	policy := recordingPolicy(3, &delays)

	attempts := 0
	out, err := RetryTransient(context.Background(), policy, logger.NewNoopLogger(), func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", status.Error(codes.Unavailable, "store hiccup")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, attempts)
	require.Len(t, delays, 2)
}

func TestRetryTransientFatalErrorNotRetried(t *testing.T) {
	var delays []time.Duration
	policy := recordingPolicy(5, &delays)

	fatal := status.Error(codes.PermissionDenied, "store rejected credentials")
	attempts := 0
	_, err := RetryTransient(context.Background(), policy, logger.NewNoopLogger(), func(context.Context) (int, error) {
		attempts++
		return 0, fatal
	})

	require.Equal(t, fatal, err)
	require.Equal(t, 1, attempts)
	require.Empty(t, delays)
}

func TestRetryTransientPreservesLastError(t *testing.T) {
	var delays []time.Duration
	policy := recordingPolicy(3, &delays)

	attempts := 0
	lastErr := MarkTransient(errors.New("attempt three"))
	_, err := RetryTransient(context.Background(), policy, logger.NewNoopLogger(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, MarkTransient(errors.New("earlier attempt"))
		}
		return 0, lastErr
	})

	// The terminal error is the last attempt's error, not a wrapper around it.
	require.Equal(t, lastErr, err)
	require.Equal(t, 3, attempts)
}

func TestRetryTransientStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: time.Millisecond,
		Multiplier:      2,
		MaxInterval:     time.Millisecond,
	}

	attempts := 0
	_, err := RetryTransient(ctx, policy, logger.NewNoopLogger(), func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, MarkTransient(errors.New("flaky"))
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestRetryTransientContextExpiresDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	policy := RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxInterval:     time.Second,
	}

	attempts := 0
	_, err := RetryTransient(ctx, policy, logger.NewNoopLogger(), func(context.Context) (int, error) {
		attempts++
		return 0, MarkTransient(errors.New("flaky"))
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, attempts)
}
