package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vkarchiver/pkg/logger"
)

const (
	// window is the trailing interval admissions are counted over.
	window = time.Second
	// safetyMargin is added to every computed wait so a woken caller lands
	// comfortably past the oldest entry's expiry.
	safetyMargin = 500 * time.Millisecond
)

// Stats is a point-in-time snapshot of the limiter.
type Stats struct {
	RequestsPerSecond int
	InWindow          int
	Remaining         int
}

// Limiter admits at most N calls within any trailing one-second window.
//
// Admission timestamps are tracked in a slice guarded by a mutex. The guard
// is never held across a sleep: a caller that finds the window full computes
// its own wait, releases the lock, sleeps, and re-checks.
type Limiter struct {
	mu    sync.Mutex
	limit int
	calls []time.Time

	// now is swappable for tests.
	now func() time.Time

	logger logger.Logger
}

// New creates a Limiter admitting up to requestsPerSecond calls per second.
func New(requestsPerSecond int, log logger.Logger) (*Limiter, error) {
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %d", requestsPerSecond)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	log.InfoWithFields("rate limiter initialized", map[string]interface{}{
		"requests_per_second": requestsPerSecond,
	})
	return &Limiter{
		limit:  requestsPerSecond,
		calls:  make([]time.Time, 0, requestsPerSecond),
		now:    time.Now,
		logger: log,
	}, nil
}

// Acquire blocks until an admission slot is free, records the admission
// timestamp and returns. It returns early with the context error if ctx is
// cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		var wait time.Duration

		l.mu.Lock()
		now := l.now()
		l.evict(now)
		if len(l.calls) < l.limit {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}
		// Window full: wait until the oldest entry ages out, plus margin.
		wait = window - now.Sub(l.calls[0]) + safetyMargin
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}

		l.logger.DebugWithFields("rate limit reached, waiting", map[string]interface{}{
			"wait": wait,
		})

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// SetLimit changes the admission limit at runtime. The live window is left
// untouched; subsequent admission decisions recompute against the new limit.
func (l *Limiter) SetLimit(requestsPerSecond int) error {
	if requestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %d", requestsPerSecond)
	}
	l.mu.Lock()
	l.limit = requestsPerSecond
	l.mu.Unlock()
	l.logger.InfoWithFields("rate limit updated", map[string]interface{}{
		"requests_per_second": requestsPerSecond,
	})
	return nil
}

// Limit returns the current admission limit.
func (l *Limiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Stats evicts expired entries and reports the current window occupancy.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	remaining := l.limit - len(l.calls)
	if remaining < 0 {
		remaining = 0
	}
	return Stats{
		RequestsPerSecond: l.limit,
		InWindow:          len(l.calls),
		Remaining:         remaining,
	}
}

// evict drops entries strictly one second old or older. Caller holds l.mu.
func (l *Limiter) evict(now time.Time) {
	i := 0
	for i < len(l.calls) && now.Sub(l.calls[i]) >= window {
		i++
	}
	if i > 0 {
		copy(l.calls, l.calls[i:])
		l.calls = l.calls[:len(l.calls)-i]
	}
}
