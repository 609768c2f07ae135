package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/cuemby/codebatch/pkg/shard"
	"github.com/cuemby/codebatch/pkg/store"
)

// Fingerprint computes fp = SHA-256( SHA-256(files.index.jsonl) ‖
// Σ SHA-256(shard.outputs.index.jsonl) ), concatenating shard hashes
// in canonical (task, shard) order.
func Fingerprint(r *store.Root, snapshotID, batchID string) (string, error) {
	h := sha256.New()

	filesIndexHash, err := hashFile(filepath.Join(r.SnapshotDir(snapshotID), "files.index.jsonl"))
	if err != nil {
		return "", err
	}
	h.Write(filesIndexHash)

	plan, err := r.LoadPlan(batchID)
	if err != nil {
		return "", err
	}
	for _, task := range plan.Tasks {
		for _, shardID := range shard.AllIDs() {
			p := filepath.Join(r.ShardDir(batchID, task.TaskID, shardID), "outputs.index.jsonl")
			sh, err := hashFile(p)
			if err != nil {
				return "", err
			}
			h.Write(sh)
		}
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum), nil
}

// hashFile returns SHA-256 of path's bytes, treating a missing file
// (a shard that never ran, or ran empty) as the hash of zero bytes —
// fingerprints must still be well-defined for partially run batches.
func hashFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			sum := sha256.Sum256(nil)
			return sum[:], nil
		}
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}
