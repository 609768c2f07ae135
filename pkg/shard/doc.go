/*
Package shard owns the shard state machine and atomic commit:
pending → running → {done, failed}, reset → pending. RunTask
drives every shard of one task through a registered executor, bounded
by a worker pool, writing state.json and outputs.index.jsonl via
tmp-rename on every transition.
*/
package shard
