// Package store resolves and materializes CodeBatch's store-root
// filesystem layout: store.json, objects/, snapshots/<id>/,
// batches/<id>/{tasks/<tid>/shards/<sid>}, indexes/lmdb/.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/types"
)

// Root is a resolved store root directory.
type Root struct {
	Path string
}

// Init creates a new store root with its store.json.
func Init(path string) (*Root, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %q: %w", path, err)
	}
	cfg := types.StoreConfig{
		SchemaName:          "codebatch.store",
		SchemaVersion:       types.SchemaVersion,
		ChunkThresholdBytes: types.DefaultChunkThreshold,
		ChunkSizeBytes:      types.DefaultChunkSize,
		WorkerCount:         0, // 0 means "default to runtime.NumCPU()"
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	storeJSON := filepath.Join(path, "store.json")
	if _, err := os.Stat(storeJSON); err == nil {
		return nil, cberrors.New(cberrors.CodeStoreInvalid, "store.json already exists at "+path)
	}
	if err := os.WriteFile(storeJSON, b, 0o644); err != nil {
		return nil, fmt.Errorf("store: write store.json: %w", err)
	}
	for _, sub := range []string{"objects", "snapshots", "batches", "indexes"} {
		if err := os.MkdirAll(filepath.Join(path, sub), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir %q: %w", sub, err)
		}
	}
	return &Root{Path: path}, nil
}

// Open resolves an existing store root, validating store.json is present.
func Open(path string) (*Root, error) {
	if path == "" {
		return nil, cberrors.New(cberrors.CodeStoreNotFound, "no store path given; pass --store or set CODEBATCH_STORE")
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, cberrors.New(cberrors.CodeStoreNotFound, "store root not found: "+path)
	}
	if _, err := os.Stat(filepath.Join(path, "store.json")); err != nil {
		return nil, cberrors.New(cberrors.CodeStoreInvalid, "missing store.json under "+path)
	}
	return &Root{Path: path}, nil
}

// Config reads store.json.
func (r *Root) Config() (*types.StoreConfig, error) {
	b, err := os.ReadFile(filepath.Join(r.Path, "store.json"))
	if err != nil {
		return nil, cberrors.Wrap(cberrors.CodeStoreInvalid, err, "read store.json")
	}
	var cfg types.StoreConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeSchemaError, err, "store.json malformed")
	}
	return &cfg, nil
}

// ObjectsDir is the CAS root under this store.
func (r *Root) ObjectsDir() string { return filepath.Join(r.Path, "objects") }

// SnapshotsDir is the root of all snapshot directories.
func (r *Root) SnapshotsDir() string { return filepath.Join(r.Path, "snapshots") }

// SnapshotDir is the directory of one snapshot.
func (r *Root) SnapshotDir(snapshotID string) string {
	return filepath.Join(r.SnapshotsDir(), snapshotID)
}

// BatchesDir is the root of all batch directories.
func (r *Root) BatchesDir() string { return filepath.Join(r.Path, "batches") }

// BatchDir is the directory of one batch.
func (r *Root) BatchDir(batchID string) string { return filepath.Join(r.BatchesDir(), batchID) }

// TaskDir is the directory of one task within a batch.
func (r *Root) TaskDir(batchID, taskID string) string {
	return filepath.Join(r.BatchDir(batchID), "tasks", taskID)
}

// ShardDir is the directory of one shard within a task.
func (r *Root) ShardDir(batchID, taskID, shardID string) string {
	return filepath.Join(r.TaskDir(batchID, taskID), "shards", shardID)
}

// IndexesDir is the root of derived indexes (the LMDB cache).
func (r *Root) IndexesDir() string { return filepath.Join(r.Path, "indexes") }

// LMDBDir is the LMDB environment directory.
func (r *Root) LMDBDir() string { return filepath.Join(r.IndexesDir(), "lmdb") }

// ResolveFromEnv resolves the store path flag value, falling back to
// CODEBATCH_STORE when flagValue is empty.
func ResolveFromEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CODEBATCH_STORE")
}
