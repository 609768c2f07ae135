package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/internal/builtin"
	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/events"
	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/shard"
	"github.com/cuemby/codebatch/pkg/snapshot"
	"github.com/cuemby/codebatch/pkg/storage"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive every task of a batch to completion, honoring dependency order",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, _ := cmd.Flags().GetString("batch")
		workers, _ := cmd.Flags().GetInt("workers")
		return driveBatch(cmd, batchID, workers)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Drive a batch's tasks again in dependency order; shards already done are run again, not skipped",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, _ := cmd.Flags().GetString("batch")
		workers, _ := cmd.Flags().GetInt("workers")
		return driveBatch(cmd, batchID, workers)
	},
}

var runShardCmd = &cobra.Command{
	Use:   "run-shard",
	Short: "Run a single task's single shard",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, _ := cmd.Flags().GetString("batch")
		taskID, _ := cmd.Flags().GetString("task")
		shardID, _ := cmd.Flags().GetString("shard")

		root, casStore, err := openStoreAndCAS(cmd)
		if err != nil {
			return err
		}
		batch, err := root.LoadBatch(batchID)
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		task, err := root.LoadTask(batchID, taskID)
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		files, err := snapshot.LoadFileIndex(root.Path, batch.SnapshotID)
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		meta, err := storage.OpenMetaIndex(root.Path)
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		defer meta.Close()

		execReg := executorRegistry()
		cfg := shard.RunnerConfig{
			Store:      root,
			CAS:        casStore,
			Executors:  execReg,
			SnapshotID: batch.SnapshotID,
			BatchID:    batchID,
			Workers:    1,
			Meta:       meta,
		}
		if err := shard.RunSingleShard(cmd.Context(), cfg, task, shardID, files); err != nil {
			reportErr(cmd, err)
			return err
		}
		fmt.Printf("shard %s of task %s done\n", shardID, taskID)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, resumeCmd} {
		c.Flags().String("batch", "", "Batch ID (required)")
		_ = c.MarkFlagRequired("batch")
		c.Flags().Int("workers", 0, "Shard worker count (0 means runtime.NumCPU())")
	}
	runShardCmd.Flags().String("batch", "", "Batch ID (required)")
	runShardCmd.Flags().String("task", "", "Task ID (required)")
	runShardCmd.Flags().String("shard", "", "Shard ID (required)")
	for _, name := range []string{"batch", "task", "shard"} {
		_ = runShardCmd.MarkFlagRequired(name)
	}
}

// driveBatch runs every task of a batch in dependency-topological
// waves: a task only starts once every task it depends on has every
// shard done. `run` and `resume` both call it and behave the same:
// every shard of every task is run again and its outputs overwritten,
// including shards a prior run already left done.
func driveBatch(cmd *cobra.Command, batchID string, workers int) error {
	root, casStore, err := openStoreAndCAS(cmd)
	if err != nil {
		return err
	}
	batch, err := root.LoadBatch(batchID)
	if err != nil {
		reportErr(cmd, err)
		return err
	}
	planDoc, err := root.LoadPlan(batchID)
	if err != nil {
		reportErr(cmd, err)
		return err
	}
	files, err := snapshot.LoadFileIndex(root.Path, batch.SnapshotID)
	if err != nil {
		reportErr(cmd, err)
		return err
	}

	broker := events.NewBroker()
	_ = broker.SetSink(filepath.Join(root.BatchDir(batchID), "events.jsonl"))
	broker.Start()
	defer broker.Stop()

	meta, err := storage.OpenMetaIndex(root.Path)
	if err != nil {
		reportErr(cmd, err)
		return err
	}
	defer meta.Close()

	execReg := executorRegistry()
	cfg := shard.RunnerConfig{
		Store:      root,
		CAS:        casStore,
		Executors:  execReg,
		SnapshotID: batch.SnapshotID,
		BatchID:    batchID,
		Workers:    workers,
		Events:     broker,
		Meta:       meta,
	}

	broker.Publish(&events.Event{Type: events.EventBatchStarted, Message: "batch run started", Metadata: map[string]string{"batch_id": batchID}})

	remaining := make(map[string]types.PlanTask, len(planDoc.Tasks))
	for _, t := range planDoc.Tasks {
		remaining[t.TaskID] = t
	}

	for len(remaining) > 0 {
		ran := false
		for taskID, pt := range remaining {
			if !allDepsRunnable(root, meta, batchID, pt.Deps) {
				continue
			}
			task, err := root.LoadTask(batchID, taskID)
			if err != nil {
				reportErr(cmd, err)
				return err
			}
			if err := shard.RunTask(cmd.Context(), cfg, task, files); err != nil {
				reportErr(cmd, err)
				return err
			}
			delete(remaining, taskID)
			ran = true
		}
		if !ran {
			err := fmt.Errorf("codebatch: plan has an unsatisfiable dependency among remaining tasks")
			reportErr(cmd, err)
			return err
		}
	}
	broker.Publish(&events.Event{Type: events.EventBatchCompleted, Message: "batch run complete", Metadata: map[string]string{"batch_id": batchID}})
	fmt.Printf("batch %s complete\n", batchID)
	return nil
}

// allDepsRunnable reports whether every dep task already has every
// shard in ShardDone. This also lets `resume` recognize tasks a prior
// process already finished, since it re-derives state from disk rather
// than from in-memory bookkeeping. meta, if non-nil, is consulted first
// as a fast path; a true result from it is trusted outright, a false or
// uncached result falls back to the authoritative filesystem scan.
func allDepsRunnable(root *store.Root, meta *storage.MetaIndex, batchID string, deps []string) bool {
	if len(deps) == 0 {
		return true
	}
	shardIDs := shard.AllIDs()
	for _, dep := range deps {
		if meta != nil {
			if done, err := meta.AllDone(batchID, dep, shardIDs); err == nil && done {
				continue
			}
		}
		for _, shardID := range shardIDs {
			done, err := shard.DepsDone(root, batchID, []string{dep}, shardID)
			if err != nil || !done {
				return false
			}
		}
	}
	return true
}

func openStoreAndCAS(cmd *cobra.Command) (*store.Root, *cas.Store, error) {
	root, err := store.Open(store.ResolveFromEnv(storeFlag(cmd)))
	if err != nil {
		reportErr(cmd, err)
		return nil, nil, err
	}
	casStore, err := cas.Open(root.ObjectsDir())
	if err != nil {
		reportErr(cmd, err)
		return nil, nil, err
	}
	return root, casStore, nil
}

func executorRegistry() *executor.Registry {
	reg := executor.NewRegistry()
	builtin.RegisterAll(reg)
	return reg
}
