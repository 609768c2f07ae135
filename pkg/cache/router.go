package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/PowerDNS/lmdb-go/lmdb"

	"github.com/cuemby/codebatch/pkg/log"
	"github.com/cuemby/codebatch/pkg/metrics"
	"github.com/cuemby/codebatch/pkg/query"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

// Queryable is the shared surface pkg/query's scan and the LMDB cache
// both answer, so a caller never branches on which backend responded.
type Queryable interface {
	Outputs(f query.Filter) ([]types.OutputRecord, error)
	Diagnostics(f query.Filter) ([]types.OutputRecord, error)
}

// scanQueryable adapts pkg/query's free functions to Queryable.
type scanQueryable struct {
	store   *store.Root
	batchID string
}

func (s *scanQueryable) Outputs(f query.Filter) ([]types.OutputRecord, error) {
	return query.Outputs(s.store, s.batchID, f)
}

func (s *scanQueryable) Diagnostics(f query.Filter) ([]types.OutputRecord, error) {
	return query.Diagnostics(s.store, s.batchID, f)
}

// Router resolves a batch's query backend on every call: the LMDB
// cache if present and its fingerprint still matches the authoritative
// sources, scan otherwise. No mixed mode — exactly one backend answers
// a given query.
type Router struct{}

// Open resolves batchID's current query backend. Callers should treat
// the returned Queryable as read-only and short-lived; Open re-checks
// cache validity on every call rather than caching the decision.
func (Router) Open(r *store.Root, batchID string) (Queryable, error) {
	batch, err := r.LoadBatch(batchID)
	if err != nil {
		return nil, err
	}

	cache, ok, err := tryOpenValidCache(r, batch.SnapshotID, batchID)
	if err != nil {
		log.Logger.Warn().Err(err).Str("batch_id", batchID).Msg("cache open failed, falling back to scan")
	}
	if ok {
		metrics.CacheRouteTotal.WithLabelValues("cache").Inc()
		return cache, nil
	}

	metrics.CacheRouteTotal.WithLabelValues("scan").Inc()
	return &scanQueryable{store: r, batchID: batchID}, nil
}

// tryOpenValidCache attempts to open indexes/lmdb and validate its
// fingerprint against the current authoritative sources. A missing or
// unreadable cache_meta.json, a snapshot/batch mismatch, a stale
// fingerprint, or an env that fails to open is reported as
// (nil, false, nil) so the caller falls back to scan. An error from
// computing the fingerprint or from creating or configuring the LMDB
// env is returned as a hard error.
func tryOpenValidCache(r *store.Root, snapshotID, batchID string) (*Cache, bool, error) {
	lmdbDir := r.LMDBDir()
	metaPath := filepath.Join(lmdbDir, "cache_meta.json")

	b, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, false, nil
	}
	var meta types.CacheMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, false, nil
	}
	if meta.SnapshotID != snapshotID || meta.BatchID != batchID {
		return nil, false, nil
	}

	currentFP, err := Fingerprint(r, snapshotID, batchID)
	if err != nil {
		return nil, false, err
	}
	if currentFP != meta.Fingerprint {
		return nil, false, nil
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, false, err
	}
	if err := env.SetMaxDBs(len(subDBs)); err != nil {
		env.Close()
		return nil, false, err
	}
	if err := env.Open(lmdbDir, lmdb.Readonly, 0o644); err != nil {
		env.Close()
		return nil, false, nil
	}

	return &Cache{env: env, snapshotID: snapshotID, batchID: batchID}, true, nil
}
