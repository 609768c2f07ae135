package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"

	"github.com/cuemby/codebatch/pkg/log"
	"github.com/cuemby/codebatch/pkg/metrics"
	"github.com/cuemby/codebatch/pkg/outputindex"
	"github.com/cuemby/codebatch/pkg/shard"
	"github.com/cuemby/codebatch/pkg/snapshot"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

// BuildOptions configures Build.
type BuildOptions struct {
	Rebuild bool
}

// Build ingests a batch's authoritative JSONL sources into a fresh
// LMDB environment under indexes/lmdb. Build is itself
// not incremental: a rebuild wipes and re-ingests everything, matching
// the single-writer bulk-load discipline LMDB expects.
func Build(r *store.Root, batchID string, opts BuildOptions) error {
	timer := metrics.NewTimer()
	batch, err := r.LoadBatch(batchID)
	if err != nil {
		return err
	}
	snapshotID := batch.SnapshotID

	lmdbDir := r.LMDBDir()
	if opts.Rebuild {
		if err := wipeEnv(lmdbDir); err != nil {
			return err
		}
	}

	env, err := openEnv(lmdbDir)
	if err != nil {
		return err
	}
	defer env.Close()

	plan, err := r.LoadPlan(batchID)
	if err != nil {
		return err
	}

	files, err := snapshot.LoadFileIndex(r.Path, snapshotID)
	if err != nil {
		return err
	}

	err = env.Update(func(txn *lmdb.Txn) error {
		dbis, err := openAllDBIs(txn)
		if err != nil {
			return err
		}
		for _, dbi := range []lmdb.DBI{dbis.meta, dbis.filesByPath, dbis.outputsByKind, dbis.diagsBySev, dbis.diagsByCode, dbis.stats} {
			if err := txn.Drop(dbi, false); err != nil {
				return fmt.Errorf("cache: clear dbi: %w", err)
			}
		}

		if err := ingestFiles(txn, dbis, snapshotID, files); err != nil {
			return err
		}

		for _, task := range plan.Tasks {
			for _, shardID := range shard.AllIDs() {
				shardDir := r.ShardDir(batchID, task.TaskID, shardID)
				if !outputindex.Exists(shardDir) {
					continue
				}
				records, err := outputindex.Read(shardDir)
				if err != nil {
					return err
				}
				if err := ingestOutputs(txn, dbis, snapshotID, batchID, task.TaskID, records); err != nil {
					return err
				}
			}
		}

		meta := map[string]string{
			"schema_name":    "codebatch.cache_meta",
			"schema_version": fmt.Sprintf("%d", types.SchemaVersion),
			"snapshot_id":    snapshotID,
			"batch_id":       batchID,
		}
		for k, v := range meta {
			if err := txn.Put(dbis.meta, []byte(k), []byte(v), 0); err != nil {
				return fmt.Errorf("cache: put meta %q: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fp, err := Fingerprint(r, snapshotID, batchID)
	if err != nil {
		return err
	}

	if err := writeCacheMeta(lmdbDir, snapshotID, batchID, fp); err != nil {
		return err
	}

	timer.ObserveDuration(metrics.CacheBuildDuration)
	log.Logger.Info().Str("batch_id", batchID).Str("fingerprint", fp).Msg("cache built")
	return nil
}

type dbiSet struct {
	meta          lmdb.DBI
	filesByPath   lmdb.DBI
	outputsByKind lmdb.DBI
	diagsBySev    lmdb.DBI
	diagsByCode   lmdb.DBI
	stats         lmdb.DBI
}

func openAllDBIs(txn *lmdb.Txn) (dbiSet, error) {
	var d dbiSet
	var err error
	if d.meta, err = txn.OpenDBI(dbMeta, 0); err != nil {
		return d, err
	}
	if d.filesByPath, err = txn.OpenDBI(dbFilesByPath, 0); err != nil {
		return d, err
	}
	if d.outputsByKind, err = txn.OpenDBI(dbOutputsByKind, 0); err != nil {
		return d, err
	}
	if d.diagsBySev, err = txn.OpenDBI(dbDiagsBySev, 0); err != nil {
		return d, err
	}
	if d.diagsByCode, err = txn.OpenDBI(dbDiagsByCode, 0); err != nil {
		return d, err
	}
	if d.stats, err = txn.OpenDBI(dbStats, 0); err != nil {
		return d, err
	}
	return d, nil
}

func ingestFiles(txn *lmdb.Txn, dbis dbiSet, snapshotID string, files []types.FileEntry) error {
	for _, f := range files {
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if err := txn.Put(dbis.filesByPath, filesByPathKey(snapshotID, f.Path), b, 0); err != nil {
			return fmt.Errorf("cache: put file entry: %w", err)
		}
	}
	return nil
}

func ingestOutputs(txn *lmdb.Txn, dbis dbiSet, snapshotID, batchID, taskID string, records []types.OutputRecord) error {
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Put(dbis.outputsByKind, outputsByKindKey(snapshotID, batchID, taskID, rec.Kind, rec.Path), b, 0); err != nil {
			return fmt.Errorf("cache: put output record: %w", err)
		}
		if err := incrementStat(txn, dbis.stats, statsKindKey(snapshotID, batchID, taskID, rec.Kind)); err != nil {
			return err
		}

		if rec.Kind == types.KindDiagnostic {
			if err := txn.Put(dbis.diagsBySev, diagsBySevKey(snapshotID, batchID, taskID, rec.Severity, rec.Code, rec.Path, rec.Line, rec.Column), b, 0); err != nil {
				return fmt.Errorf("cache: put diag by severity: %w", err)
			}
			if err := txn.Put(dbis.diagsByCode, diagsByCodeKey(snapshotID, batchID, taskID, rec.Code, rec.Severity, rec.Path, rec.Line, rec.Column), b, 0); err != nil {
				return fmt.Errorf("cache: put diag by code: %w", err)
			}
			if err := incrementStat(txn, dbis.stats, statsSevCodeKey(snapshotID, batchID, taskID, rec.Severity, rec.Code)); err != nil {
				return err
			}
		}
	}
	return nil
}

func incrementStat(txn *lmdb.Txn, dbi lmdb.DBI, key []byte) error {
	var count uint64
	existing, err := txn.Get(dbi, key)
	if err != nil {
		if !lmdb.IsNotFound(err) {
			return fmt.Errorf("cache: read stat counter: %w", err)
		}
	} else {
		count = binary.BigEndian.Uint64(existing)
	}
	count++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], count)
	if err := txn.Put(dbi, key, buf[:], 0); err != nil {
		return fmt.Errorf("cache: write stat counter: %w", err)
	}
	return nil
}

func writeCacheMeta(lmdbDir, snapshotID, batchID, fingerprint string) error {
	meta := types.CacheMeta{
		SchemaName:    "codebatch.cache_meta",
		SchemaVersion: types.SchemaVersion,
		SnapshotID:    snapshotID,
		BatchID:       batchID,
		Fingerprint:   fingerprint,
		BuiltAt:       time.Now().UTC(),
		SourceFiles:   []string{"files.index.jsonl", "outputs.index.jsonl"},
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(lmdbDir, "cache_meta.json")
	if err := writeFileAtomic(path, b); err != nil {
		return err
	}
	return nil
}
