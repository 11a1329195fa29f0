package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	calls := 0

	err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Backoff:     Capped(5*time.Second, 30*time.Second),
		Sleep:       func(d time.Duration) { waits = append(waits, d) },
	}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, waits)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	t.Parallel()

	fatal := errors.New("bad credentials")
	calls := 0

	err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
		Sleep:       func(time.Duration) {},
	}, func() error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Sleep:       func(time.Duration) {},
	}, func() error {
		calls++
		return errors.New("still processing")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
}

func TestCappedBackoffCeiling(t *testing.T) {
	t.Parallel()

	backoff := Capped(5*time.Second, 30*time.Second)
	assert.Equal(t, 5*time.Second, backoff(1))
	assert.Equal(t, 20*time.Second, backoff(4))
	assert.Equal(t, 30*time.Second, backoff(10))
}
