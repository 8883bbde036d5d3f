package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"vkarchiver/pkg/logger"
)

func TestNewRejectsNonPositiveLimit(t *testing.T) {
	for _, n := range []int{0, -1, -100} {
		if _, err := New(n, logger.Nop()); err == nil {
			t.Errorf("expected error for limit %d", n)
		}
	}
}

func TestAcquireWithinLimitIsImmediate(t *testing.T) {
	l, err := New(3, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d failed: %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected burst within limit to be immediate, took %v", elapsed)
	}
}

func TestAcquireBlocksOverLimit(t *testing.T) {
	l, err := New(2, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("first two calls should not wait, took %v", elapsed)
	}

	// Third call must wait for the window to free up plus the safety margin.
	third := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	waited := time.Since(third)
	if waited < 900*time.Millisecond {
		t.Errorf("third call should wait at least ~1s, waited %v", waited)
	}
	if waited > 3*time.Second {
		t.Errorf("third call waited unreasonably long: %v", waited)
	}
}

func TestWindowNeverExceedsLimit(t *testing.T) {
	const limit = 3
	l, err := New(limit, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	var (
		mu         sync.Mutex
		admissions []time.Time
	)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			mu.Lock()
			admissions = append(admissions, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Every trailing one-second window must hold at most `limit` admissions.
	for i, anchor := range admissions {
		count := 0
		for _, ts := range admissions {
			d := ts.Sub(anchor)
			if d >= 0 && d < time.Second {
				count++
			}
		}
		if count > limit {
			t.Errorf("window anchored at admission %d holds %d admissions, limit %d", i, count, limit)
		}
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l, err := New(1, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded while waiting, got %v", err)
	}
}

func TestStats(t *testing.T) {
	l, err := New(3, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	stats := l.Stats()
	if stats.RequestsPerSecond != 3 || stats.InWindow != 0 || stats.Remaining != 3 {
		t.Errorf("unexpected initial stats: %+v", stats)
	}

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	stats = l.Stats()
	if stats.InWindow != 1 || stats.Remaining != 2 {
		t.Errorf("unexpected stats after one call: %+v", stats)
	}

	// Stats must not record admissions of its own.
	for i := 0; i < 5; i++ {
		_ = l.Stats()
	}
	if got := l.Stats().InWindow; got != 1 {
		t.Errorf("stats mutated the window: in_window=%d", got)
	}
}

func TestStatsEvictsExpiredEntries(t *testing.T) {
	l, err := New(2, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	base := time.Now()
	now := base
	l.now = func() time.Time { return now }

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := l.Stats().InWindow; got != 2 {
		t.Fatalf("expected 2 in window, got %d", got)
	}

	// Exactly one second old is already outside the half-open window.
	now = base.Add(time.Second)
	if got := l.Stats().InWindow; got != 0 {
		t.Errorf("expected expired entries evicted, got in_window=%d", got)
	}
}

func TestSetLimit(t *testing.T) {
	l, err := New(2, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	if err := l.SetLimit(0); err == nil {
		t.Error("expected error for zero limit")
	}
	if err := l.SetLimit(-5); err == nil {
		t.Error("expected error for negative limit")
	}
	if err := l.SetLimit(10); err != nil {
		t.Errorf("unexpected error raising limit: %v", err)
	}
	if got := l.Limit(); got != 10 {
		t.Errorf("expected limit 10, got %d", got)
	}

	// Raising the limit mid-window must admit immediately.
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected immediate admissions after raising limit, took %v", elapsed)
	}
}
