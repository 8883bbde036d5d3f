package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before a given retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the delay before attempt n (1-based).
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay as Base * Multiplier^(attempt-1), capped
// at Max, with a uniformly random jitter in [0, Jitter) added on top.
type ExponentialBackoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     time.Duration
}

// DefaultExponentialBackoff matches the archiver's API retry policy:
// 0.5s base doubling each attempt with up to 200ms of jitter.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:       500 * time.Millisecond,
		Max:        60 * time.Second,
		Multiplier: 2.0,
		Jitter:     200 * time.Millisecond,
	}
}

// NextDelay implements BackoffStrategy.
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(eb.Base) * math.Pow(eb.Multiplier, float64(attempt-1))
	if eb.Max > 0 && delay > float64(eb.Max) {
		delay = float64(eb.Max)
	}
	if eb.Jitter > 0 {
		delay += rand.Float64() * float64(eb.Jitter)
	}
	return time.Duration(delay)
}

// ConstantBackoff waits the same delay before every retry.
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay implements BackoffStrategy.
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay or until ctx is cancelled, whichever comes first.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
