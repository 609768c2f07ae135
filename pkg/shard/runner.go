package shard

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/events"
	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/log"
	"github.com/cuemby/codebatch/pkg/metrics"
	"github.com/cuemby/codebatch/pkg/outputindex"
	"github.com/cuemby/codebatch/pkg/plan"
	"github.com/cuemby/codebatch/pkg/storage"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

// RunnerConfig bundles everything the runner needs to drive a task's
// shards to completion.
type RunnerConfig struct {
	Store      *store.Root
	CAS        *cas.Store
	Executors  *executor.Registry
	SnapshotID string
	BatchID    string
	Workers    int // 0 means runtime.NumCPU()
	Events     *events.Broker      // optional; nil means no event publication
	Meta       *storage.MetaIndex // optional; nil means no shard-state mirroring
}

func (c RunnerConfig) publish(typ events.EventType, msg string, meta map[string]string) {
	if c.Events == nil {
		return
	}
	c.Events.Publish(&events.Event{Type: typ, Message: msg, Metadata: meta})
}

// mirrorState writes shardDir's just-committed state into the meta
// index, if one is configured. Best-effort: the index is a derived
// accelerator, never the source of truth, so a mirror failure is
// logged and swallowed rather than failing the shard run.
func (c RunnerConfig) mirrorState(taskID, shardID string, state types.ShardState, failureReason string) {
	if c.Meta == nil {
		return
	}
	sf := &types.ShardStateFile{
		SchemaName:    "codebatch.shard_state",
		SchemaVersion: types.SchemaVersion,
		ShardID:       shardID,
		State:         state,
		UpdatedAt:     time.Now().UTC(),
		FailureReason: failureReason,
	}
	if err := c.Meta.PutShardState(c.BatchID, taskID, sf); err != nil {
		log.Logger.Warn().Err(err).Str("task_id", taskID).Str("shard_id", shardID).Msg("meta index mirror failed")
	}
}

// execContext is the per-shard implementation of executor.Context.
type execContext struct {
	store       *cas.Store
	priorOutput map[string][]types.OutputRecord // taskID -> records
}

func (e *execContext) IterPriorOutputs(taskID, kind string) ([]types.OutputRecord, error) {
	recs, ok := e.priorOutput[taskID]
	if !ok {
		return nil, nil
	}
	if kind == "" {
		return recs, nil
	}
	var out []types.OutputRecord
	for _, r := range recs {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (e *execContext) PutObject(data []byte) (string, error) {
	return e.store.PutBytes(data)
}

// RunTask drives every shard of one task to completion, in parallel
// bounded by cfg.Workers. files is the full snapshot file list; each
// shard filters it by IDFor(path_key). Each shard's executor sees, via
// IterPriorOutputs, the outputs of every dep task's shard with the same
// shard ID (loaded by loadPriorOutputs).
func RunTask(ctx context.Context, cfg RunnerConfig, task *types.Task, files []types.FileEntry) error {
	fn, ok := cfg.Executors.Lookup(task.Type)
	if !ok {
		return cberrors.New(cberrors.CodeSchemaError, fmt.Sprintf("shard: no executor registered for type %q", task.Type))
	}

	byShard := partitionByShard(files)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, shardID := range AllIDs() {
		shardID := shardID
		shardFiles := byShard[shardID]
		g.Go(func() error {
			return runShard(gctx, cfg, task, shardID, shardFiles, fn)
		})
	}
	return g.Wait()
}

// RunSingleShard runs one task's one shard, for the operator-facing
// single-shard entry point (the run-shard CLI command). files is the full
// snapshot file list; RunSingleShard filters it to shardID's members
// itself so callers never need to hand-partition.
func RunSingleShard(ctx context.Context, cfg RunnerConfig, task *types.Task, shardID string, files []types.FileEntry) error {
	fn, ok := cfg.Executors.Lookup(task.Type)
	if !ok {
		return cberrors.New(cberrors.CodeSchemaError, fmt.Sprintf("shard: no executor registered for type %q", task.Type))
	}

	var shardFiles []types.FileEntry
	for _, f := range files {
		if IDFor(f.PathKey) == shardID {
			shardFiles = append(shardFiles, f)
		}
	}
	return runShard(ctx, cfg, task, shardID, shardFiles, fn)
}

func partitionByShard(files []types.FileEntry) map[string][]types.FileEntry {
	out := make(map[string][]types.FileEntry)
	for _, f := range files {
		id := IDFor(f.PathKey)
		out[id] = append(out[id], f)
	}
	return out
}

func runShard(ctx context.Context, cfg RunnerConfig, task *types.Task, shardID string, files []types.FileEntry, fn executor.Func) error {
	shardDir := cfg.Store.ShardDir(cfg.BatchID, task.TaskID, shardID)
	timer := metrics.NewTimer()

	meta := map[string]string{"task_id": task.TaskID, "shard_id": shardID}

	if len(task.Deps) > 0 {
		depsOK, err := DepsDone(cfg.Store, cfg.BatchID, task.Deps, shardID)
		if err != nil {
			return err
		}
		if !depsOK {
			return plan.ErrDepsUnsatisfied
		}
	}

	if len(files) == 0 {
		if err := WriteState(shardDir, shardID, types.ShardRunning, ""); err != nil {
			return err
		}
		cfg.mirrorState(task.TaskID, shardID, types.ShardRunning, "")
		if err := outputindex.Write(shardDir, nil); err != nil {
			return err
		}
		if err := WriteState(shardDir, shardID, types.ShardDone, ""); err != nil {
			return err
		}
		cfg.mirrorState(task.TaskID, shardID, types.ShardDone, "")
		timer.ObserveDurationVec(metrics.ShardDuration, task.Type)
		metrics.ShardsRunTotal.WithLabelValues(task.Type, string(types.ShardDone)).Inc()
		cfg.publish(events.EventShardCompleted, "shard done (no files)", meta)
		return nil
	}

	if err := WriteState(shardDir, shardID, types.ShardRunning, ""); err != nil {
		return err
	}
	cfg.mirrorState(task.TaskID, shardID, types.ShardRunning, "")
	cfg.publish(events.EventShardStarted, "shard running", meta)

	execFiles := make([]executor.File, 0, len(files))
	for _, f := range files {
		content, err := cfg.CAS.Get(f.Object)
		if err != nil {
			_ = WriteState(shardDir, shardID, types.ShardFailed, err.Error())
			cfg.mirrorState(task.TaskID, shardID, types.ShardFailed, err.Error())
			cfg.publish(events.EventShardFailed, err.Error(), meta)
			return err
		}
		execFiles = append(execFiles, executor.File{
			Path:     f.Path,
			PathKey:  f.PathKey,
			Object:   f.Object,
			Size:     f.Size,
			LangHint: f.LangHint,
			TextHash: f.TextHash,
			Content:  content,
		})
	}

	priorOutputs, err := loadPriorOutputs(cfg, task, shardID)
	if err != nil {
		_ = WriteState(shardDir, shardID, types.ShardFailed, err.Error())
		cfg.mirrorState(task.TaskID, shardID, types.ShardFailed, err.Error())
		cfg.publish(events.EventShardFailed, err.Error(), meta)
		return err
	}

	ectx := &execContext{store: cfg.CAS, priorOutput: priorOutputs}

	records, err := fn(ctx, task.Config, execFiles, ectx)
	if err != nil {
		_ = WriteState(shardDir, shardID, types.ShardFailed, err.Error())
		cfg.mirrorState(task.TaskID, shardID, types.ShardFailed, err.Error())
		cfg.publish(events.EventShardFailed, err.Error(), meta)
		return cberrors.Wrap(cberrors.CodeExecutorFailed, err, fmt.Sprintf("executor %q failed on shard %s", task.Type, shardID))
	}

	ts := time.Now().UTC().Unix()
	for i := range records {
		records[i].SchemaName = "codebatch.output"
		records[i].SchemaVersion = types.SchemaVersion
		records[i].SnapshotID = cfg.SnapshotID
		records[i].BatchID = cfg.BatchID
		records[i].TaskID = task.TaskID
		records[i].ShardID = shardID
		records[i].TS = ts
	}

	if err := outputindex.Write(shardDir, records); err != nil {
		_ = WriteState(shardDir, shardID, types.ShardFailed, err.Error())
		cfg.mirrorState(task.TaskID, shardID, types.ShardFailed, err.Error())
		cfg.publish(events.EventShardFailed, err.Error(), meta)
		return err
	}
	for _, r := range records {
		metrics.ShardOutputRecordsTotal.WithLabelValues(task.Type, r.Kind).Inc()
	}

	if err := WriteState(shardDir, shardID, types.ShardDone, ""); err != nil {
		return err
	}
	cfg.mirrorState(task.TaskID, shardID, types.ShardDone, "")
	timer.ObserveDurationVec(metrics.ShardDuration, task.Type)
	metrics.ShardsRunTotal.WithLabelValues(task.Type, string(types.ShardDone)).Inc()
	log.Logger.Debug().Str("task_id", task.TaskID).Str("shard_id", shardID).Int("records", len(records)).Msg("shard done")
	cfg.publish(events.EventShardCompleted, "shard done", meta)
	return nil
}

func loadPriorOutputs(cfg RunnerConfig, task *types.Task, shardID string) (map[string][]types.OutputRecord, error) {
	out := make(map[string][]types.OutputRecord, len(task.Deps))
	for _, dep := range task.Deps {
		shardDir := cfg.Store.ShardDir(cfg.BatchID, dep, shardID)
		recs, err := outputindex.Read(shardDir)
		if err != nil {
			if cberrors.CodeOf(err) == cberrors.CodeShardNotFound {
				continue
			}
			return nil, err
		}
		out[dep] = recs
	}
	return out, nil
}

// DepsDone reports whether every dep task has reached ShardDone for
// shardID, used by the resume path to decide which shards are runnable.
func DepsDone(s *store.Root, batchID string, deps []string, shardID string) (bool, error) {
	for _, dep := range deps {
		shardDir := s.ShardDir(batchID, dep, shardID)
		st, err := ReadState(shardDir)
		if err != nil {
			if cberrors.CodeOf(err) == cberrors.CodeShardNotFound {
				return false, nil
			}
			return false, err
		}
		if st.State != types.ShardDone {
			return false, nil
		}
	}
	return true, nil
}
