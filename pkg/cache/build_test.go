package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/outputindex"
	"github.com/cuemby/codebatch/pkg/query"
	"github.com/cuemby/codebatch/pkg/shard"
	"github.com/cuemby/codebatch/pkg/snapshot"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

func setupBuiltBatch(t *testing.T) (*store.Root, string) {
	t.Helper()
	storeDir := filepath.Join(t.TempDir(), "store")
	r, err := store.Init(storeDir)
	require.NoError(t, err)

	casStore, err := cas.Open(r.ObjectsDir())
	require.NoError(t, err)

	srcDir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(srcDir, "a.py"), "import sys\n"))

	snap, err := snapshot.Build(storeDir, srcDir, casStore, snapshot.Options{})
	require.NoError(t, err)

	plan := &types.Plan{Tasks: []types.PlanTask{{TaskID: "lint", Type: "lint"}}}
	batchID := "b1"
	_, err = r.CreateBatch(batchID, snap.SnapshotID, "full", plan)
	require.NoError(t, err)

	files, err := snapshot.LoadFileIndex(storeDir, snap.SnapshotID)
	require.NoError(t, err)
	shardID := shard.IDFor(files[0].PathKey)
	shardDir := r.ShardDir(batchID, "lint", shardID)
	require.NoError(t, outputindex.Write(shardDir, []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Severity: "warning", Code: "L101", Line: 1, SnapshotID: snap.SnapshotID, BatchID: batchID, TaskID: "lint", ShardID: shardID},
	}))

	return r, batchID
}

func writeTestFile(path, content string) error {
	return writeFileAtomic(path, []byte(content))
}

func TestBuildThenCacheAgreesWithScan(t *testing.T) {
	r, batchID := setupBuiltBatch(t)

	require.NoError(t, Build(r, batchID, BuildOptions{}))

	router := Router{}
	q, err := router.Open(r, batchID)
	require.NoError(t, err)
	if c, ok := q.(*Cache); ok {
		defer c.Close()
	}

	cacheRecords, err := q.Diagnostics(query.Filter{})
	require.NoError(t, err)

	scanRecords, err := query.Diagnostics(r, batchID, query.Filter{})
	require.NoError(t, err)

	require.Len(t, cacheRecords, 1)
	require.Len(t, scanRecords, 1)
	assert.Equal(t, scanRecords[0].Code, cacheRecords[0].Code)
	assert.Equal(t, scanRecords[0].Path, cacheRecords[0].Path)
}

func TestRouterFallsBackToScanWhenIndexesDeleted(t *testing.T) {
	r, batchID := setupBuiltBatch(t)
	require.NoError(t, Build(r, batchID, BuildOptions{}))

	require.NoError(t, os.RemoveAll(r.IndexesDir()))

	router := Router{}
	q, err := router.Open(r, batchID)
	require.NoError(t, err)

	_, isCache := q.(*Cache)
	assert.False(t, isCache)

	records, err := q.Diagnostics(query.Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDiagnosticsBySeverityAndCodeAgreeWithScan(t *testing.T) {
	r, batchID := setupBuiltBatch(t)
	require.NoError(t, Build(r, batchID, BuildOptions{}))

	router := Router{}
	q, err := router.Open(r, batchID)
	require.NoError(t, err)
	c, isCache := q.(*Cache)
	require.True(t, isCache)
	defer c.Close()

	bySev, err := c.Diagnostics(query.Filter{TaskID: "lint", Severity: "warning"})
	require.NoError(t, err)
	scanBySev, err := query.Diagnostics(r, batchID, query.Filter{TaskID: "lint", Severity: "warning"})
	require.NoError(t, err)
	require.Len(t, bySev, 1)
	assert.Equal(t, scanBySev[0].Code, bySev[0].Code)

	byCode, err := c.Diagnostics(query.Filter{TaskID: "lint", Code: "L101"})
	require.NoError(t, err)
	scanByCode, err := query.Diagnostics(r, batchID, query.Filter{TaskID: "lint", Code: "L101"})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, scanByCode[0].Path, byCode[0].Path)

	none, err := c.Diagnostics(query.Filter{TaskID: "lint", Severity: "error"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRebuildWipesStaleEnv(t *testing.T) {
	r, batchID := setupBuiltBatch(t)
	require.NoError(t, Build(r, batchID, BuildOptions{}))
	require.NoError(t, Build(r, batchID, BuildOptions{Rebuild: true}))

	router := Router{}
	q, err := router.Open(r, batchID)
	require.NoError(t, err)
	c, isCache := q.(*Cache)
	require.True(t, isCache)
	defer c.Close()
}
