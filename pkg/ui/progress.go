package ui

import (
	"fmt"
	"sync"
	"time"
)

// StatusTracker accumulates per-batch download counters for display. It is
// safe to update from concurrent download workers.
type StatusTracker struct {
	mu         sync.Mutex
	downloaded int
	skipped    int
	failed     int
	startTime  time.Time
}

// NewStatusTracker creates a tracker with the clock started.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{startTime: time.Now()}
}

// RecordDownloaded counts one successful download.
func (st *StatusTracker) RecordDownloaded() {
	st.mu.Lock()
	st.downloaded++
	st.mu.Unlock()
	st.print()
}

// RecordSkipped counts one skipped item.
func (st *StatusTracker) RecordSkipped() {
	st.mu.Lock()
	st.skipped++
	st.mu.Unlock()
	st.print()
}

// RecordFailed counts one failed item.
func (st *StatusTracker) RecordFailed() {
	st.mu.Lock()
	st.failed++
	st.mu.Unlock()
	st.print()
}

// Counts returns the current totals.
func (st *StatusTracker) Counts() (downloaded, skipped, failed int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.downloaded, st.skipped, st.failed
}

// Elapsed returns the time since tracking started.
func (st *StatusTracker) Elapsed() time.Duration {
	return time.Since(st.startTime)
}

func (st *StatusTracker) print() {
	st.mu.Lock()
	defer st.mu.Unlock()
	fmt.Printf("\r%s downloaded: %d | skipped: %d | failed: %d",
		Green("[ARCHIVING]"), st.downloaded, st.skipped, st.failed)
}

// PrintSummary prints the final run totals on their own line.
func (st *StatusTracker) PrintSummary() {
	downloaded, skipped, failed := st.Counts()
	fmt.Printf("\n%s downloaded %d, skipped %d, failed %d in %s\n",
		Green("[DONE]"), downloaded, skipped, failed, st.Elapsed().Round(time.Second))
}
