// Package archive orchestrates archiving runs: it resolves a user or group
// target, pages through each VK content type sequentially (resuming from
// persisted cursors), and hands the collected media to the concurrent
// download pool.
package archive
