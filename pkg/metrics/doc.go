// Package metrics defines and registers CodeBatch's Prometheus metrics:
// CAS writes/dedups, snapshot build time, shard run counts and durations,
// cache build time, query routing decisions, and diff classifications.
//
// Metrics are collected in-process throughout a command's lifetime and are
// only exposed over HTTP when a command opts in with --serve-metrics;
// CodeBatch has no resident daemon to scrape otherwise.
package metrics
