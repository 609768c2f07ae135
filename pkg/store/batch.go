package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/types"
)

// NewBatchID mints a batch ID. Unlike snapshot_id and shard_id, batch_id
// is not content-derived — callers are free to pick any unique value.
func NewBatchID() string {
	return uuid.New().String()
}

// CreateBatch materializes batches/<id>/{batch.json,plan.json,events.jsonl,tasks/*}.
func (r *Root) CreateBatch(batchID, snapshotID, pipeline string, plan *types.Plan) (*types.Batch, error) {
	dir := r.BatchDir(batchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir batch dir: %w", err)
	}

	batch := &types.Batch{
		SchemaName:    "codebatch.batch",
		SchemaVersion: types.SchemaVersion,
		BatchID:       batchID,
		SnapshotID:    snapshotID,
		Pipeline:      pipeline,
		CreatedAt:     time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(dir, "batch.json"), batch); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, "plan.json"), plan); err != nil {
		return nil, err
	}
	if _, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
		return nil, fmt.Errorf("store: create events.jsonl: %w", err)
	}

	for _, pt := range plan.Tasks {
		taskDir := r.TaskDir(batchID, pt.TaskID)
		if err := os.MkdirAll(filepath.Join(taskDir, "shards"), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir task dir: %w", err)
		}
		task := &types.Task{
			SchemaName:    "codebatch.task",
			SchemaVersion: types.SchemaVersion,
			TaskID:        pt.TaskID,
			Type:          pt.Type,
			Deps:          pt.Deps,
			Config:        pt.Config,
		}
		if err := writeJSON(filepath.Join(taskDir, "task.json"), task); err != nil {
			return nil, err
		}
		if _, err := os.OpenFile(filepath.Join(taskDir, "events.jsonl"), os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
			return nil, fmt.Errorf("store: create task events.jsonl: %w", err)
		}
	}

	return batch, nil
}

// LoadBatch reads a batch's batch.json.
func (r *Root) LoadBatch(batchID string) (*types.Batch, error) {
	var b types.Batch
	if err := readJSON(filepath.Join(r.BatchDir(batchID), "batch.json"), &b, cberrors.CodeBatchNotFound); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadPlan reads a batch's plan.json.
func (r *Root) LoadPlan(batchID string) (*types.Plan, error) {
	var p types.Plan
	if err := readJSON(filepath.Join(r.BatchDir(batchID), "plan.json"), &p, cberrors.CodeBatchNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadTask reads a task's task.json.
func (r *Root) LoadTask(batchID, taskID string) (*types.Task, error) {
	var t types.Task
	if err := readJSON(filepath.Join(r.TaskDir(batchID, taskID), "task.json"), &t, cberrors.CodeTaskNotFound); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListBatchIDs lists batch directories in the store.
func (r *Root) ListBatchIDs() ([]string, error) {
	entries, err := os.ReadDir(r.BatchesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: list batches: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %q: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("store: write %q: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any, notFoundCode cberrors.Code) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cberrors.New(notFoundCode, "not found: "+path)
		}
		return fmt.Errorf("store: read %q: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return cberrors.Wrap(cberrors.CodeSchemaError, err, "malformed "+filepath.Base(path))
	}
	return nil
}
