package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vkarchiver/pkg/logger"
)

// ErrRetriesExhausted marks a failure after the retry budget ran out. Callers
// can test for it with errors.Is to distinguish a terminal call failure from
// a fail-fast error.
var ErrRetriesExhausted = errors.New("max retry attempts exceeded")

// Operation is a retriable unit of work.
type Operation func() error

// OperationWithResult is a retriable unit of work producing a value.
type OperationWithResult[T any] func() (T, error)

// Config holds retry behaviour.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Backoff strategy; nil means DefaultExponentialBackoff.
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth retrying. nil retries all.
	RetryIf func(error) bool
	// OnRetry is invoked before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation during backoff sleeps.
	Context context.Context
	// Logger for retry attempts.
	Logger logger.Logger
}

// DefaultConfig returns the archiver's standard retry configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 5,
		Backoff:    DefaultExponentialBackoff(),
		Context:    context.Background(),
		Logger:     logger.GetLogger(),
	}
}

// Do runs op, retrying per cfg until success, a non-retryable error, context
// cancellation, or an exhausted budget.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return err
		}

		// attempt n failing means n-1 retries are already spent
		if attempt > cfg.MaxRetries {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("retry budget exhausted", map[string]interface{}{
					"attempts":   attempt,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, lastErr)
		}

		delay := backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult runs op with retry logic and returns its value.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}
