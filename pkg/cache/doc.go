/*
Package cache implements the derived LMDB query-acceleration cache:
Build ingests a batch's authoritative files.index.jsonl
and outputs.index.jsonl files into named LMDB sub-databases and stamps
a fingerprint; Router resolves, per query, whether that cache is still
valid for its sources and otherwise falls back to pkg/query's scan —
transparently, with no mixed-mode answers.

The cache is derived and disposable: deleting indexes/ only ever
routes queries back to scan, never loses data.
*/
package cache
