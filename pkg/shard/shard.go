// Package shard implements CodeBatch's shard state machine and
// atomic commit: pending → running → {done, failed}, with
// an operator-triggered reset back to pending.
package shard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/types"
)

// Count is the fixed number of shards a snapshot is partitioned into
// using the first two hex characters of SHA-256(path_key).
const Count = 256

// StateFileName is the name of a shard's state.json.
const StateFileName = "state.json"

// IDFor returns the two-hex-character shard ID a path_key hashes into.
func IDFor(pathKey string) string {
	sum := sha256.Sum256([]byte(pathKey))
	return hex.EncodeToString(sum[:1])
}

// AllIDs returns every shard ID in canonical ascending order.
func AllIDs() []string {
	ids := make([]string, 0, Count)
	for i := 0; i < Count; i++ {
		ids = append(ids, fmt.Sprintf("%02x", i))
	}
	return ids
}

// ReadState reads shardDir/state.json. A shard that has never run has
// no state.json; callers should treat that as implicit ShardPending.
func ReadState(shardDir string) (*types.ShardStateFile, error) {
	b, err := os.ReadFile(filepath.Join(shardDir, StateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cberrors.New(cberrors.CodeShardNotFound, "no state.json in "+shardDir)
		}
		return nil, fmt.Errorf("shard: read state: %w", err)
	}
	var s types.ShardStateFile
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeSchemaError, err, "state.json malformed")
	}
	return &s, nil
}

// WriteState atomically transitions shardDir's state.json via
// tmp-then-rename, on every transition.
func WriteState(shardDir, shardID string, state types.ShardState, failureReason string) error {
	if err := os.MkdirAll(shardDir, 0o755); err != nil {
		return fmt.Errorf("shard: mkdir %q: %w", shardDir, err)
	}
	sf := types.ShardStateFile{
		SchemaName:    "codebatch.shard_state",
		SchemaVersion: types.SchemaVersion,
		ShardID:       shardID,
		State:         state,
		UpdatedAt:     time.Now().UTC(),
		FailureReason: failureReason,
	}
	b, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("shard: marshal state: %w", err)
	}

	final := filepath.Join(shardDir, StateFileName)
	tmp, err := os.CreateTemp(shardDir, ".tmp-state-*")
	if err != nil {
		return fmt.Errorf("shard: create tmp state: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("shard: write tmp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("shard: fsync tmp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("shard: close tmp state: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("shard: rename state into place: %w", err)
	}
	return nil
}

// Reset moves a done or failed shard back to pending (operator action).
// It does not remove the prior outputs.index.jsonl; the next run
// overwrites it via the normal commit path.
func Reset(shardDir, shardID string) error {
	st, err := ReadState(shardDir)
	if err != nil {
		return err
	}
	if st.State != types.ShardDone && st.State != types.ShardFailed {
		return cberrors.New(cberrors.CodeInvalidArgument, fmt.Sprintf("shard %s: cannot reset from state %q", shardID, st.State))
	}
	return WriteState(shardDir, shardID, types.ShardPending, "")
}
