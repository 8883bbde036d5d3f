// Package ratelimit throttles outbound VK API calls.
//
// The limiter uses a sliding one-second window: every admission records a
// timestamp, entries older than one second are lazily evicted, and a caller
// that finds the window full sleeps (with the internal lock released) until
// the oldest entry ages out plus a half-second safety margin.
//
// Usage:
//
//	limiter, err := ratelimit.New(3, nil)
//	if err != nil {
//	    return err
//	}
//	if err := limiter.Acquire(ctx); err != nil {
//	    return err // context cancelled while waiting
//	}
//	// proceed with the API call
package ratelimit
