/*
Package snapshot builds an immutable, content-addressed manifest of a
source tree: every file is canonicalized (pkg/pathnorm),
hashed into the object store (pkg/cas), and recorded in canonical order
in files.index.jsonl. snapshot_id is the SHA-256 of that serialized,
canonically ordered index — two builds over byte-identical trees always
produce the same snapshot_id and the same files.index.jsonl.

Once snapshot.json is written the snapshot is never mutated; Build
always creates a fresh snapshots/<id>/ directory (a rebuild of the same
tree is a content-addressed no-op: the directory, if present, already
holds the answer).
*/
package snapshot
