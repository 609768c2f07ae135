package outputindex

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/types"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	records := []types.OutputRecord{
		{SchemaName: "codebatch.output", SchemaVersion: 1, Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1},
		{SchemaName: "codebatch.output", SchemaVersion: 1, Path: "a.py", Kind: types.KindDiagnostic, Code: "L102", Line: 3},
	}
	require.NoError(t, Write(dir, records))
	assert.True(t, Exists(dir))

	got, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestWriteIsFullReplacement(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, []types.OutputRecord{{Path: "a.py", Kind: "diagnostic"}, {Path: "b.py", Kind: "diagnostic"}}))
	require.NoError(t, Write(dir, []types.OutputRecord{{Path: "c.py", Kind: "diagnostic"}}))

	got, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c.py", got[0].Path)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(t.TempDir())
	assert.Error(t, err)
}

func TestEmptyShardWritesEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, nil))
	got, err := Read(dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPayloadUnderThresholdStoresDirect(t *testing.T) {
	store, err := cas.Open(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	data := []byte("small payload")
	object, format, err := PutPayload(store, "ast", "json", data, 1024, 512)
	require.NoError(t, err)
	assert.Equal(t, "json", format)

	got, err := GetPayload(store, object)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPayloadExactlyAtThresholdDoesNotChunk(t *testing.T) {
	store, err := cas.Open(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	data := make([]byte, 100)
	_, format, err := PutPayload(store, "ast", "json", data, 100, 40)
	require.NoError(t, err)
	assert.Equal(t, "json", format)
}

func TestPayloadOneByteOverThresholdChunks(t *testing.T) {
	store, err := cas.Open(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	data := make([]byte, 101)
	for i := range data {
		data[i] = byte(i % 251)
	}
	object, format, err := PutPayload(store, "ast", "json", data, 100, 40)
	require.NoError(t, err)
	assert.Equal(t, "chunks/v1", format)

	got, err := GetPayload(store, object)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestChunkManifestTotalBytesMatchesSum(t *testing.T) {
	store, err := cas.Open(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	data := make([]byte, 2500)
	object, _, err := PutPayload(store, "metric", "json", data, 100, 1000)
	require.NoError(t, err)

	raw, err := store.Get(object)
	require.NoError(t, err)
	var manifest types.ChunkManifest
	require.NoError(t, json.Unmarshal(raw, &manifest))

	var sum int64
	for _, ch := range manifest.Chunks {
		b, err := store.Get(ch)
		require.NoError(t, err)
		sum += int64(len(b))
	}
	assert.Equal(t, manifest.TotalBytes, sum)
	assert.Equal(t, int64(2500), manifest.TotalBytes)
}
