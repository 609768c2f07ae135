package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/types"
)

func TestInitOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	r, err := Init(dir)
	require.NoError(t, err)

	cfg, err := r.Config()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultChunkThreshold, cfg.ChunkThresholdBytes)

	r2, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, r2.Path)
}

func TestInitRefusesExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	_, err := Init(dir)
	require.NoError(t, err)

	_, err = Init(dir)
	assert.Error(t, err)
}

func TestOpenMissingStore(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCreateAndLoadBatch(t *testing.T) {
	r, err := Init(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	plan := &types.Plan{
		SchemaName: "codebatch.plan", SchemaVersion: 1, Pipeline: "full",
		Tasks: []types.PlanTask{
			{TaskID: "parse", Type: "parse"},
			{TaskID: "lint", Type: "lint", Deps: []string{"parse"}},
		},
	}
	batchID := NewBatchID()
	batch, err := r.CreateBatch(batchID, "snap1", "full", plan)
	require.NoError(t, err)
	assert.Equal(t, batchID, batch.BatchID)

	loaded, err := r.LoadBatch(batchID)
	require.NoError(t, err)
	assert.Equal(t, "snap1", loaded.SnapshotID)

	loadedPlan, err := r.LoadPlan(batchID)
	require.NoError(t, err)
	require.Len(t, loadedPlan.Tasks, 2)

	task, err := r.LoadTask(batchID, "lint")
	require.NoError(t, err)
	assert.Equal(t, []string{"parse"}, task.Deps)
}

func TestLoadBatchNotFound(t *testing.T) {
	r, err := Init(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	_, err = r.LoadBatch("missing")
	assert.Error(t, err)
}

func TestResolveFromEnv(t *testing.T) {
	t.Setenv("CODEBATCH_STORE", "/env/store")
	assert.Equal(t, "/flag/store", ResolveFromEnv("/flag/store"))
	assert.Equal(t, "/env/store", ResolveFromEnv(""))
}
