package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

func setupStoreForFingerprint(t *testing.T) (*store.Root, string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "store")
	r, err := store.Init(dir)
	require.NoError(t, err)

	snapshotID := "snap1"
	require.NoError(t, os.MkdirAll(r.SnapshotDir(snapshotID), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(r.SnapshotDir(snapshotID), "files.index.jsonl"), []byte(`{"path":"a.py"}`+"\n"), 0o644))

	plan := &types.Plan{Tasks: []types.PlanTask{{TaskID: "lint", Type: "lint"}}}
	batchID := "b1"
	_, err = r.CreateBatch(batchID, snapshotID, "full", plan)
	require.NoError(t, err)

	return r, snapshotID, batchID
}

func TestFingerprintDeterministic(t *testing.T) {
	r, snapshotID, batchID := setupStoreForFingerprint(t)

	fp1, err := Fingerprint(r, snapshotID, batchID)
	require.NoError(t, err)
	fp2, err := Fingerprint(r, snapshotID, batchID)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestFingerprintChangesWithOutputs(t *testing.T) {
	r, snapshotID, batchID := setupStoreForFingerprint(t)

	before, err := Fingerprint(r, snapshotID, batchID)
	require.NoError(t, err)

	shardDir := r.ShardDir(batchID, "lint", "00")
	require.NoError(t, os.MkdirAll(shardDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(shardDir, "outputs.index.jsonl"), []byte(`{"code":"L101"}`+"\n"), 0o644))

	after, err := Fingerprint(r, snapshotID, batchID)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}
