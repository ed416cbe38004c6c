// Package dedupe provides command deduplication using a time-based cache
// so retried realtime commands are only applied once.
package dedupe
