// Package consistency tracks which media items have already been downloaded,
// shared across concurrent archiver instances through a file-locked JSON
// record. It makes re-runs idempotent: workers consult the store before
// fetching and record each success immediately.
package consistency
