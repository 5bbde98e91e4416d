package retry

import (
	"context"
	"math"
	"time"
)

// Config holds the configuration for retry logic
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// Checker reports whether an error should trigger another attempt.
type Checker func(err error) bool

// Logger defines a function for logging retry attempts
type Logger func(format string, args ...any)

// calculateDelay computes the delay for the given attempt using exponential backoff
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do runs fn until it succeeds, shouldRetry rejects its error, or the attempt
// budget is exhausted. The last error is returned in that final case.
func Do(ctx context.Context, cfg Config, shouldRetry Checker, logf Logger, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		// Delay before each retry, but not before the first attempt
		if attempt > 0 {
			delay := cfg.calculateDelay(attempt - 1)
			if logf != nil {
				logf("retry attempt %d/%d after %v delay", attempt+1, cfg.MaxRetries+1, delay)
			}

			// Honor context cancellation during the delay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn(attempt)
		if err == nil {
			if attempt > 0 && logf != nil {
				logf("request succeeded on attempt %d/%d", attempt+1, cfg.MaxRetries+1)
			}
			return nil
		}
		lastErr = err

		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		if logf != nil {
			logf("attempt %d/%d failed: %v", attempt+1, cfg.MaxRetries+1, err)
		}
	}

	return lastErr
}
