package downloader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"vkarchiver/pkg/consistency"
	"vkarchiver/pkg/logger"
)

// Job is one downloadable unit: the source URL and the final target path.
// ID is the consistency-store identifier, conventionally "{owner}_{item}".
type Job struct {
	ID     string
	URL    string
	Target string
}

// Status is the terminal state of one job.
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Result reports the outcome of one job.
type Result struct {
	Job      Job
	Status   Status
	Err      error
	Size     int
	Duration time.Duration
}

// Summary aggregates a batch. Per-item failures never abort the batch; they
// are counted here and marked on disk instead.
type Summary struct {
	Attempted  int
	Downloaded int
	Skipped    int
	Failed     int
}

// Fetcher retrieves a binary payload. Implementations return an error for
// any non-200 response.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Pool downloads jobs with bounded concurrency. Targets that already exist
// are skipped, payloads are written atomically, and a failed job leaves a
// "<target>_error.txt" sidecar describing the failure. The sidecar is
// advisory only: retry eligibility depends solely on the target's absence,
// and a later success removes the marker.
type Pool struct {
	numWorkers int
	fetcher    Fetcher
	store      *consistency.Store
	logger     logger.Logger

	// onResult, when set, observes every completed job. Cosmetic: it must
	// not affect scheduling.
	onResult func(Result)
}

// NewPool creates a download pool. store may be nil to disable
// identifier-based dedup (filesystem existence checks still apply).
func NewPool(numWorkers int, fetcher Fetcher, store *consistency.Store, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		numWorkers: numWorkers,
		fetcher:    fetcher,
		store:      store,
		logger:     log,
	}
}

// OnResult registers a progress hook invoked after every job completes.
func (p *Pool) OnResult(hook func(Result)) {
	p.onResult = hook
}

// Run downloads all jobs and returns the aggregate summary. Item failures
// are isolated; only a cancelled context stops the batch early.
func (p *Pool) Run(ctx context.Context, jobs []Job) Summary {
	jobCh := make(chan Job)
	resultCh := make(chan Result, p.numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for job := range jobCh {
				res := p.process(ctx, job)
				select {
				case resultCh <- res:
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}

	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var summary Summary
	for res := range resultCh {
		summary.Attempted++
		switch res.Status {
		case StatusDownloaded:
			summary.Downloaded++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
		if p.onResult != nil {
			p.onResult(res)
		}
	}

	p.logger.InfoWithFields("download batch finished", map[string]interface{}{
		"attempted":  summary.Attempted,
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
	})
	return summary
}

// process runs one job through the pending -> fetching -> terminal states.
func (p *Pool) process(ctx context.Context, job Job) Result {
	start := time.Now()

	// Primary on-disk dedup: a present target means the item is satisfied.
	if _, err := os.Stat(job.Target); err == nil {
		return Result{Job: job, Status: StatusSkipped, Duration: time.Since(start)}
	}

	// Identifier-based dedup, shared across instances.
	if p.store != nil && job.ID != "" && p.store.IsDownloaded(job.ID) {
		return Result{Job: job, Status: StatusSkipped, Duration: time.Since(start)}
	}

	data, err := p.fetcher.Fetch(ctx, job.URL)
	if err != nil {
		p.fail(job, err)
		return Result{Job: job, Status: StatusFailed, Err: err, Duration: time.Since(start)}
	}

	if err := atomicWrite(job.Target, data); err != nil {
		p.fail(job, err)
		return Result{Job: job, Status: StatusFailed, Err: err, Duration: time.Since(start)}
	}

	// Success clears any marker from a previous failed run.
	os.Remove(errorMarkerPath(job.Target))

	if p.store != nil && job.ID != "" {
		if err := p.store.MarkDownloaded(job.ID); err != nil {
			// The file is on disk; losing the record only risks a redundant
			// skip-check next run, but the caller should hear about it.
			p.logger.ErrorWithFields("failed to record download", map[string]interface{}{
				"id":    job.ID,
				"error": err.Error(),
			})
			return Result{Job: job, Status: StatusFailed, Err: err, Size: len(data), Duration: time.Since(start)}
		}
	}

	p.logger.DebugWithFields("downloaded", map[string]interface{}{
		"target": job.Target,
		"size":   len(data),
	})
	return Result{Job: job, Status: StatusDownloaded, Size: len(data), Duration: time.Since(start)}
}

// fail records a sidecar error marker next to the intended target. Marker
// write failures are logged and swallowed: the marker is observability, not
// state.
func (p *Pool) fail(job Job, cause error) {
	p.logger.WarnWithFields("download failed", map[string]interface{}{
		"url":    job.URL,
		"target": job.Target,
		"error":  cause.Error(),
	})
	marker := errorMarkerPath(job.Target)
	msg := fmt.Sprintf("download of %s failed at %s: %v\n", job.URL, time.Now().Format(time.RFC3339), cause)
	if err := os.WriteFile(marker, []byte(msg), 0o644); err != nil {
		p.logger.WarnWithFields("could not write error marker", map[string]interface{}{
			"marker": marker,
			"error":  err.Error(),
		})
	}
}

func errorMarkerPath(target string) string {
	return target + "_error.txt"
}
