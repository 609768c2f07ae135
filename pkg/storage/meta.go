// Package storage provides a BoltDB-backed side index of shard state
// and plan bodies: a small embedded KV cache that run/resume consult as
// a fast path before scanning shard state.json files; the query router
// does not read it. Like pkg/cache, it is a derived, rebuildable index —
// batches/<id>/plan.json and every shard's state.json remain
// authoritative; losing meta.bolt only costs a slower dependency check,
// never correctness.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/codebatch/pkg/types"
)

var (
	bucketPlans       = []byte("plans")
	bucketShardStates = []byte("shard_states")
)

// MetaIndex is a BoltDB-backed cache of plan bodies and shard states.
type MetaIndex struct {
	db *bolt.DB
}

// OpenMetaIndex opens (creating if absent) storeRoot/indexes/meta.bolt.
func OpenMetaIndex(storeRoot string) (*MetaIndex, error) {
	path := filepath.Join(storeRoot, "indexes", "meta.bolt")
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open meta index: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPlans); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketShardStates)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create buckets: %w", err)
	}
	return &MetaIndex{db: db}, nil
}

// Close closes the underlying database.
func (m *MetaIndex) Close() error {
	return m.db.Close()
}

// PutPlan caches batchID's plan body.
func (m *MetaIndex) PutPlan(batchID string, plan *types.Plan) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(plan)
		if err != nil {
			return fmt.Errorf("storage: marshal plan: %w", err)
		}
		return tx.Bucket(bucketPlans).Put([]byte(batchID), data)
	})
}

// GetPlan returns the cached plan for batchID, or nil if not cached.
func (m *MetaIndex) GetPlan(batchID string) (*types.Plan, error) {
	var plan types.Plan
	found := false
	err := m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPlans).Get([]byte(batchID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &plan)
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get plan %q: %w", batchID, err)
	}
	if !found {
		return nil, nil
	}
	return &plan, nil
}

func shardStateKey(batchID, taskID, shardID string) []byte {
	return []byte(batchID + "\x1f" + taskID + "\x1f" + shardID)
}

// PutShardState mirrors a shard's state transition into the index.
// This is a best-effort accelerator, not a second source of truth:
// shard.WriteState's tmp-then-rename of state.json is what actually
// commits the transition.
func (m *MetaIndex) PutShardState(batchID, taskID string, state *types.ShardStateFile) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("storage: marshal shard state: %w", err)
		}
		return tx.Bucket(bucketShardStates).Put(shardStateKey(batchID, taskID, state.ShardID), data)
	})
}

// GetShardState returns the cached state for one shard, or nil if not cached.
func (m *MetaIndex) GetShardState(batchID, taskID, shardID string) (*types.ShardStateFile, error) {
	var state types.ShardStateFile
	found := false
	err := m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketShardStates).Get(shardStateKey(batchID, taskID, shardID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get shard state %s/%s/%s: %w", batchID, taskID, shardID, err)
	}
	if !found {
		return nil, nil
	}
	return &state, nil
}

// AllDone reports whether the index has every one of shardIDs recorded
// as ShardDone for taskID. A false result is never conclusive on its
// own — callers should treat it as "consult the filesystem", since the
// index can be cold or behind; a true result, backed by the index's
// own mirrored writes, is always safe to trust.
func (m *MetaIndex) AllDone(batchID, taskID string, shardIDs []string) (bool, error) {
	allDone := true
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketShardStates)
		for _, shardID := range shardIDs {
			data := b.Get(shardStateKey(batchID, taskID, shardID))
			if data == nil {
				allDone = false
				return nil
			}
			var state types.ShardStateFile
			if err := json.Unmarshal(data, &state); err != nil {
				return err
			}
			if state.State != types.ShardDone {
				allDone = false
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("storage: check all-done %s/%s: %w", batchID, taskID, err)
	}
	return allDone, nil
}
