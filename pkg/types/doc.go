/*
Package types defines CodeBatch's persisted record shapes.

Every record that touches disk — files.index.jsonl, snapshot.json,
plan.json, batch.json, task.json, state.json, outputs.index.jsonl, chunk
manifests, store.json, cache_meta.json — is defined here as a plain
struct with json tags matching the on-disk record shapes exactly. There is no
intermediate DTO layer: writers marshal these structs directly, and
readers unmarshal into them and ignore unrecognized fields by
construction (encoding/json's default behavior).

schema_name/schema_version accompany every record kind so that a future,
incompatible revision can be detected by readers without guessing from
shape alone.
*/
package types
