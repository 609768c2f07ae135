// Package types defines CodeBatch's on-disk record shapes: snapshots,
// batches, tasks, shards, output records, and the chunk manifest. Every
// type here round-trips through encoding/json exactly as persisted —
// field tags are the wire format, not just Go convention.
package types

import "time"

// SchemaVersion is bumped on any breaking field change to a persisted
// record. Readers ignore unknown fields.
const SchemaVersion = 1

// FileEntry is one row of a snapshot's files.index.jsonl.
type FileEntry struct {
	Path     string `json:"path"`
	PathKey  string `json:"path_key"`
	Object   string `json:"object"`
	Size     int64  `json:"size"`
	LangHint string `json:"lang_hint,omitempty"`
	Mode     uint32 `json:"mode"`
	MTime    int64  `json:"mtime"`
	TextHash string `json:"text_hash"`
}

// Snapshot is the immutable manifest of a source tree at a point in time.
type Snapshot struct {
	SchemaName    string    `json:"schema_name"`
	SchemaVersion int       `json:"schema_version"`
	SnapshotID    string    `json:"snapshot_id"`
	CreatedAt     time.Time `json:"created_at"`
	Root          string    `json:"root"`
	FileCount     int       `json:"file_count"`
}

// Plan is the materialized task list for a batch (plan.json).
type Plan struct {
	SchemaName    string     `json:"schema_name"`
	SchemaVersion int        `json:"schema_version"`
	Pipeline      string     `json:"pipeline"`
	Tasks         []PlanTask `json:"tasks"`
}

// PlanTask is one entry of a Plan.
type PlanTask struct {
	TaskID string         `json:"task_id"`
	Type   string         `json:"type"`
	Deps   []string        `json:"deps"`
	Config map[string]any `json:"config,omitempty"`
}

// Batch is one execution attempt bound to a snapshot (batch.json).
type Batch struct {
	SchemaName    string    `json:"schema_name"`
	SchemaVersion int       `json:"schema_version"`
	BatchID       string    `json:"batch_id"`
	SnapshotID    string    `json:"snapshot_id"`
	Pipeline      string    `json:"pipeline"`
	CreatedAt     time.Time `json:"created_at"`
}

// Task is one stage of the pipeline inside a batch (task.json).
type Task struct {
	SchemaName    string   `json:"schema_name"`
	SchemaVersion int      `json:"schema_version"`
	TaskID        string   `json:"task_id"`
	Type          string   `json:"type"`
	Deps          []string `json:"deps"`
	Config        map[string]any `json:"config,omitempty"`
	ShardCount    int      `json:"shard_count"`
}

// ShardState is a shard's position in its state machine.
type ShardState string

const (
	ShardPending ShardState = "pending"
	ShardRunning ShardState = "running"
	ShardDone    ShardState = "done"
	ShardFailed  ShardState = "failed"
)

// ShardStateFile is the contents of a shard's state.json.
type ShardStateFile struct {
	SchemaName    string     `json:"schema_name"`
	SchemaVersion int        `json:"schema_version"`
	ShardID       string     `json:"shard_id"`
	State         ShardState `json:"state"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// OutputRecord is one line of a shard's outputs.index.jsonl — the
// shard's complete semantic truth.
type OutputRecord struct {
	SchemaName    string `json:"schema_name"`
	SchemaVersion int    `json:"schema_version"`
	SnapshotID    string `json:"snapshot_id"`
	BatchID       string `json:"batch_id"`
	TaskID        string `json:"task_id"`
	ShardID       string `json:"shard_id"`
	Path          string `json:"path"`
	Kind          string `json:"kind"`
	TS            int64  `json:"ts"`

	// Optional: a record referring to stored bytes in CAS.
	Object string `json:"object,omitempty"`
	Format string `json:"format,omitempty"`

	// Kind-specific payload fields.
	Severity   string  `json:"severity,omitempty"`
	Code       string  `json:"code,omitempty"`
	Message    string  `json:"message,omitempty"`
	Line       int     `json:"line,omitempty"`
	Column     int     `json:"column,omitempty"`
	Name       string  `json:"name,omitempty"`
	SymbolType string  `json:"symbol_type,omitempty"`
	Scope      string  `json:"scope,omitempty"`
	Metric     string  `json:"metric,omitempty"`
	Value      float64 `json:"value,omitempty"`
	EdgeType   string  `json:"edge_type,omitempty"`
	Target     string  `json:"target,omitempty"`
}

// Kind values used by the builtin reference executors and the diff
// engine's canonical-key table.
const (
	KindDiagnostic = "diagnostic"
	KindMetric     = "metric"
	KindSymbol     = "symbol"
	KindAST        = "ast"
	KindEdge       = "edge"
)

// Severity scale, ordered worst-to-best index reversed: info < warning < error.
var SeverityOrder = map[string]int{
	"info":    0,
	"warning": 1,
	"error":   2,
}

// ChunkManifest is a CAS object enumerating the child CAS hashes that
// make up a logically larger blob.
type ChunkManifest struct {
	SchemaName    string   `json:"schema_name"`
	SchemaVersion int      `json:"schema_version"`
	Kind          string   `json:"kind"`
	Format        string   `json:"format"`
	Chunks        []string `json:"chunks"`
	TotalBytes    int64    `json:"total_bytes"`
}

// ChunkManifestSchemaName identifies a CAS object as a chunk manifest
// when readers sniff its bytes.
const ChunkManifestSchemaName = "codebatch.chunks"

// ChunkManifestFormat is the record `format` value that points at a
// chunk manifest rather than raw bytes.
const ChunkManifestFormat = "chunks/v1"

// StoreConfig is the contents of a store's store.json.
type StoreConfig struct {
	SchemaName          string `json:"schema_name"`
	SchemaVersion       int    `json:"schema_version"`
	ChunkThresholdBytes int64  `json:"chunk_threshold_bytes"`
	ChunkSizeBytes      int64  `json:"chunk_size_bytes"`
	WorkerCount         int    `json:"worker_count"`
}

// DefaultChunkThreshold and DefaultChunkSize are the chunk-manifest defaults.
const (
	DefaultChunkThreshold int64 = 1 << 20 // 1 MiB
	DefaultChunkSize      int64 = 1 << 20 // 1 MiB
)

// CacheMeta is the contents of a cache's cache_meta.json.
type CacheMeta struct {
	SchemaName    string   `json:"schema_name"`
	SchemaVersion int      `json:"schema_version"`
	SnapshotID    string   `json:"snapshot_id"`
	BatchID       string   `json:"batch_id"`
	Fingerprint   string   `json:"fingerprint"`
	BuiltAt       time.Time `json:"built_at"`
	SourceFiles   []string `json:"source_files"`
}
