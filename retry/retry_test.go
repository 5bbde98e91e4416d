package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       time.Millisecond,
		MaxDelay:        4 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testConfig(), nil, nil, func(attempt int) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsOnNonRetryableError(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	err := Do(context.Background(), testConfig(), func(err error) bool { return false }, nil, func(attempt int) error {
		attempts++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	transient := errors.New("transient")
	attempts := 0
	err := Do(context.Background(), testConfig(), nil, nil, func(attempt int) error {
		attempts++
		return transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 4, attempts) // initial + MaxRetries
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, Config{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, BackoffMultiple: 2.0}, nil, nil, func(attempt int) error {
		attempts++
		cancel()
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestCalculateDelay_CapsAtMaxDelay(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, time.Millisecond, cfg.calculateDelay(0))
	assert.Equal(t, 2*time.Millisecond, cfg.calculateDelay(1))
	assert.Equal(t, 4*time.Millisecond, cfg.calculateDelay(2))
	assert.Equal(t, 4*time.Millisecond, cfg.calculateDelay(10))
}
