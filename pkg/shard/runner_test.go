package shard_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/internal/builtin"
	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/outputindex"
	"github.com/cuemby/codebatch/pkg/shard"
	"github.com/cuemby/codebatch/pkg/snapshot"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

const scenarioSource = "import sys\ndef f():\n  x=1\n  return 42\n"

func setupFixture(t *testing.T) (*store.Root, *cas.Store, []types.FileEntry, string) {
	t.Helper()
	storeDir := filepath.Join(t.TempDir(), "store")
	root, err := store.Init(storeDir)
	require.NoError(t, err)

	casStore, err := cas.Open(root.ObjectsDir())
	require.NoError(t, err)

	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "fixture.py"), []byte(scenarioSource), 0o644))

	snap, err := snapshot.Build(storeDir, srcDir, casStore, snapshot.Options{})
	require.NoError(t, err)

	files, err := snapshot.LoadFileIndex(storeDir, snap.SnapshotID)
	require.NoError(t, err)

	return root, casStore, files, snap.SnapshotID
}

func TestRunTaskLintScenario2EndToEnd(t *testing.T) {
	root, casStore, files, snapshotID := setupFixture(t)

	reg := executor.NewRegistry()
	builtin.RegisterAll(reg)

	batchID := "batch-1"
	task := &types.Task{TaskID: "lint", Type: "lint"}

	cfg := shard.RunnerConfig{
		Store:      root,
		CAS:        casStore,
		Executors:  reg,
		SnapshotID: snapshotID,
		BatchID:    batchID,
		Workers:    2,
	}
	require.NoError(t, shard.RunTask(context.Background(), cfg, task, files))

	shardID := shard.IDFor(files[0].PathKey)
	shardDir := root.ShardDir(batchID, "lint", shardID)

	st, err := shard.ReadState(shardDir)
	require.NoError(t, err)
	assert.Equal(t, types.ShardDone, st.State)

	records, err := outputindex.Read(shardDir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "L101", records[0].Code)
	assert.Equal(t, "L102", records[1].Code)
	assert.Equal(t, snapshotID, records[0].SnapshotID)
	assert.Equal(t, batchID, records[0].BatchID)
	assert.Equal(t, "lint", records[0].TaskID)
}

func TestRunTaskEmptyShardGoesStraightToDone(t *testing.T) {
	root, casStore, _, snapshotID := setupFixture(t)

	reg := executor.NewRegistry()
	builtin.RegisterAll(reg)

	cfg := shard.RunnerConfig{
		Store:      root,
		CAS:        casStore,
		Executors:  reg,
		SnapshotID: snapshotID,
		BatchID:    "batch-2",
		Workers:    2,
	}
	task := &types.Task{TaskID: "lint", Type: "lint"}
	require.NoError(t, shard.RunTask(context.Background(), cfg, task, nil))

	for _, id := range shard.AllIDs() {
		shardDir := root.ShardDir("batch-2", "lint", id)
		st, err := shard.ReadState(shardDir)
		require.NoError(t, err)
		assert.Equal(t, types.ShardDone, st.State)

		records, err := outputindex.Read(shardDir)
		require.NoError(t, err)
		assert.Empty(t, records)
	}
}

func TestRunTaskDownstreamRunsAfterDepsDone(t *testing.T) {
	root, casStore, files, snapshotID := setupFixture(t)

	reg := executor.NewRegistry()
	builtin.RegisterAll(reg)
	batchID := "batch-3"

	parseTask := &types.Task{TaskID: "parse", Type: "parse"}
	cfg := shard.RunnerConfig{Store: root, CAS: casStore, Executors: reg, SnapshotID: snapshotID, BatchID: batchID, Workers: 2}
	require.NoError(t, shard.RunTask(context.Background(), cfg, parseTask, files))

	symbolsTask := &types.Task{TaskID: "symbols", Type: "symbols", Deps: []string{"parse"}}
	require.NoError(t, shard.RunTask(context.Background(), cfg, symbolsTask, files))

	shardID := shard.IDFor(files[0].PathKey)
	ok, err := shard.DepsDone(root, batchID, []string{"parse"}, shardID)
	require.NoError(t, err)
	assert.True(t, ok)

	records, err := outputindex.Read(root.ShardDir(batchID, "symbols", shardID))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "f", records[0].Name)
}
