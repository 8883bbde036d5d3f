package vkapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vkarchiver/pkg/logger"
	"vkarchiver/pkg/ratelimit"
	"vkarchiver/pkg/retry"
)

// DefaultCallTimeout bounds a single API attempt unless overridden per call.
const DefaultCallTimeout = 30 * time.Second

// ExecutorConfig holds the executor's failure-handling policy.
type ExecutorConfig struct {
	MaxRetries  int
	Backoff     retry.BackoffStrategy
	CallTimeout time.Duration
}

// DefaultExecutorConfig mirrors the archiver's production policy: five
// retries with 0.5s exponential backoff plus jitter, 30s per attempt.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxRetries:  5,
		Backoff:     retry.DefaultExponentialBackoff(),
		CallTimeout: DefaultCallTimeout,
	}
}

// Executor wraps a Caller with rate-limit admission, per-attempt timeouts and
// retry with exponential backoff. Every attempt, including retries, passes
// through the rate limiter, so a retry storm cannot exceed the call budget.
//
// Non-retryable VK errors (auth, permission, not-found, bad params) fail fast
// instead of consuming the retry budget. Exhausted retries surface as an
// error wrapping retry.ErrRetriesExhausted.
type Executor struct {
	caller  Caller
	limiter *ratelimit.Limiter
	config  ExecutorConfig
	logger  logger.Logger
}

// NewExecutor wires a Caller behind the given rate limiter.
func NewExecutor(caller Caller, limiter *ratelimit.Limiter, cfg ExecutorConfig, log logger.Logger) *Executor {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.DefaultExponentialBackoff()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Executor{
		caller:  caller,
		limiter: limiter,
		config:  cfg,
		logger:  log,
	}
}

// Call invokes a VK API method with the default per-attempt timeout.
func (e *Executor) Call(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	return e.CallWithTimeout(ctx, method, params, e.config.CallTimeout)
}

// CallWithTimeout invokes a VK API method with an explicit per-attempt
// timeout override.
func (e *Executor) CallWithTimeout(ctx context.Context, method string, params Params, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = e.config.CallTimeout
	}

	op := func() (json.RawMessage, error) {
		if err := e.limiter.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("rate limit admission: %w", err)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return e.caller.Call(attemptCtx, method, params)
	}

	cfg := &retry.Config{
		MaxRetries: e.config.MaxRetries,
		Backoff:    e.config.Backoff,
		Context:    ctx,
		Logger:     e.logger,
		RetryIf: func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			return IsRetryable(err)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			fields := map[string]interface{}{
				"method":      method,
				"attempt":     attempt,
				"max_retries": e.config.MaxRetries,
				"delay":       delay,
				"error":       err.Error(),
			}
			// Classification picks the message only; the retry policy is
			// identical for every retryable failure.
			if IsRateLimited(err) {
				e.logger.WarnWithFields("rate limited by vk api, backing off", fields)
			} else {
				e.logger.WarnWithFields("transient vk api error, retrying", fields)
			}
		},
	}

	result, err := retry.DoWithResult(op, cfg)
	if err != nil {
		return nil, fmt.Errorf("vk api call %s: %w", method, err)
	}
	return result, nil
}

// Stats exposes the underlying rate limiter snapshot.
func (e *Executor) Stats() ratelimit.Stats {
	return e.limiter.Stats()
}
