package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) *Backoff {
	return &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		MaxAttempts:  attempts,
	}
}

func TestBackoff_SuccessAfterRetries(t *testing.T) {
	var retried []int
	b := fastBackoff(10)
	b.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	calls := 0
	err := b.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return fmt.Errorf("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestBackoff_PermanentError(t *testing.T) {
	calls := 0
	fatal := errors.New("authentication failed")
	err := DefaultBackoff().Do(context.Background(), func(context.Context, int) error {
		calls++
		return Permanent(fatal)
	})

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_NotRetryable(t *testing.T) {
	calls := 0
	b := fastBackoff(10)
	b.Retryable = func(error) bool { return false }

	err := b.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("bad address")
	})
	assert.EqualError(t, err, "bad address")
	assert.Equal(t, 1, calls)
}

func TestBackoff_MaxAttempts(t *testing.T) {
	calls := 0
	err := fastBackoff(3).Do(context.Background(), func(context.Context, int) error {
		calls++
		return fmt.Errorf("always fails")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Backoff{InitialDelay: time.Hour, MaxAttempts: 0}
	b.OnRetry = func(int, error, time.Duration) { cancel() }

	err := b.Do(ctx, func(context.Context, int) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_Delay(t *testing.T) {
	b := &Backoff{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(5))
	assert.Equal(t, time.Second, b.Delay(50))
}

func TestJitter_Bounds(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		j := jitter(d)
		assert.GreaterOrEqual(t, j, 75*time.Millisecond)
		assert.Less(t, j, 125*time.Millisecond)
	}
}
