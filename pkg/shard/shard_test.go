package shard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/types"
)

func TestIDForIsTwoHexChars(t *testing.T) {
	id := IDFor("a.py")
	assert.Len(t, id, 2)
}

func TestAllIDsCoversFullSpace(t *testing.T) {
	ids := AllIDs()
	assert.Len(t, ids, Count)
	assert.Equal(t, "00", ids[0])
	assert.Equal(t, "ff", ids[Count-1])
}

func TestWriteReadStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteState(dir, "00", types.ShardRunning, ""))

	st, err := ReadState(dir)
	require.NoError(t, err)
	assert.Equal(t, types.ShardRunning, st.State)
	assert.Equal(t, "00", st.ShardID)
}

func TestReadStateMissingIsNotFound(t *testing.T) {
	_, err := ReadState(t.TempDir())
	assert.Error(t, err)
}

func TestResetFromDoneToPending(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteState(dir, "00", types.ShardDone, ""))
	require.NoError(t, Reset(dir, "00"))

	st, err := ReadState(dir)
	require.NoError(t, err)
	assert.Equal(t, types.ShardPending, st.State)
}

func TestResetRejectsFromRunning(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteState(dir, "00", types.ShardRunning, ""))
	assert.Error(t, Reset(dir, "00"))
}

func TestWriteStateCreatesShardDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "shard")
	require.NoError(t, WriteState(dir, "00", types.ShardPending, ""))
	_, err := ReadState(dir)
	require.NoError(t, err)
}
