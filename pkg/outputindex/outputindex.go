// Package outputindex writes and reads a shard's outputs.index.jsonl —
// the shard's complete semantic truth — and implements the
// large-output chunk manifest.
package outputindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/types"
)

// FileName is the name of a shard's output index file.
const FileName = "outputs.index.jsonl"

// Write replaces shardDir/outputs.index.jsonl wholesale via tmp-rename:
// the file is never appended after commit. Records are written
// in the order given; callers are responsible for executor-emission
// order within the shard.
func Write(shardDir string, records []types.OutputRecord) error {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("outputindex: marshal record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	final := filepath.Join(shardDir, FileName)
	tmp, err := os.CreateTemp(shardDir, ".tmp-outputs-*")
	if err != nil {
		return fmt.Errorf("outputindex: create tmp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("outputindex: write tmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("outputindex: fsync tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("outputindex: close tmp: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("outputindex: rename into place: %w", err)
	}
	return nil
}

// Read loads a shard's outputs.index.jsonl in stored order. An existing
// index with no records yields a nil slice and no error; a missing
// index (a shard that has never run) is a SHARD_NOT_FOUND error.
func Read(shardDir string) ([]types.OutputRecord, error) {
	p := filepath.Join(shardDir, FileName)
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cberrors.New(cberrors.CodeShardNotFound, "no outputs index at "+p)
		}
		return nil, fmt.Errorf("outputindex: read %q: %w", p, err)
	}
	var records []types.OutputRecord
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec types.OutputRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, cberrors.Wrap(cberrors.CodeSchemaError, err, "outputs.index.jsonl malformed")
		}
		records = append(records, rec)
	}
	return records, nil
}

// Exists reports whether shardDir already has a committed output index.
func Exists(shardDir string) bool {
	_, err := os.Stat(filepath.Join(shardDir, FileName))
	return err == nil
}

// PutPayload stores bytes for an output record's `object`/`format`
// fields: payloads at or under threshold are stored
// directly; larger payloads are split into chunkSize pieces and
// assembled into a chunk manifest, whose hash becomes `object` with
// format "chunks/v1".
func PutPayload(store *cas.Store, kind, format string, data []byte, threshold, chunkSize int64) (object string, outFormat string, err error) {
	if int64(len(data)) <= threshold {
		h, err := store.PutBytes(data)
		if err != nil {
			return "", "", err
		}
		return h, format, nil
	}

	var chunkHashes []string
	for start := 0; start < len(data); start += int(chunkSize) {
		end := start + int(chunkSize)
		if end > len(data) {
			end = len(data)
		}
		h, err := store.PutBytes(data[start:end])
		if err != nil {
			return "", "", err
		}
		chunkHashes = append(chunkHashes, h)
	}

	manifest := types.ChunkManifest{
		SchemaName:    types.ChunkManifestSchemaName,
		SchemaVersion: types.SchemaVersion,
		Kind:          kind,
		Format:        format,
		Chunks:        chunkHashes,
		TotalBytes:    int64(len(data)),
	}
	mb, err := json.Marshal(manifest)
	if err != nil {
		return "", "", fmt.Errorf("outputindex: marshal chunk manifest: %w", err)
	}
	h, err := store.PutBytes(mb)
	if err != nil {
		return "", "", err
	}
	return h, types.ChunkManifestFormat, nil
}

// GetPayload reads the bytes referenced by an output record's `object`
// field, transparently reassembling a chunk manifest if present.
func GetPayload(store *cas.Store, object string) ([]byte, error) {
	raw, err := store.Get(object)
	if err != nil {
		return nil, err
	}

	var manifest types.ChunkManifest
	if json.Unmarshal(raw, &manifest) == nil && manifest.SchemaName == types.ChunkManifestSchemaName {
		var buf bytes.Buffer
		for _, ch := range manifest.Chunks {
			cb, err := store.Get(ch)
			if err != nil {
				return nil, err
			}
			buf.Write(cb)
		}
		if int64(buf.Len()) != manifest.TotalBytes {
			return nil, cberrors.New(cberrors.CodeCASCorrupt,
				fmt.Sprintf("chunk manifest %s: reassembled %d bytes, want %d", object, buf.Len(), manifest.TotalBytes))
		}
		return buf.Bytes(), nil
	}

	return raw, nil
}
