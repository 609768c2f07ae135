package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/plan"
	"github.com/cuemby/codebatch/pkg/storage"
	"github.com/cuemby/codebatch/pkg/store"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Manage batches",
}

var batchInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Materialize batch.json and plan.json for a pipeline run",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshotID, _ := cmd.Flags().GetString("snapshot")
		pipelineName, _ := cmd.Flags().GetString("pipeline")
		bundlePath, _ := cmd.Flags().GetString("pipelines-file")

		root, err := store.Open(store.ResolveFromEnv(storeFlag(cmd)))
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		bundle, err := plan.LoadBundle(bundlePath)
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		pipeline, err := bundle.Find(pipelineName)
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		planDoc := pipeline.ToPlan()

		reg := builtinExecutorRegistry()
		if err := plan.Validate(planDoc, reg); err != nil {
			reportErr(cmd, err)
			return err
		}

		batchID := store.NewBatchID()
		batch, err := root.CreateBatch(batchID, snapshotID, pipelineName, planDoc)
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
		if err := meta.PutPlan(batchID, planDoc); err != nil {
			reportErr(cmd, err)
			return err
		}

		fmt.Println(batch.BatchID)
		return nil
	},
}

func builtinExecutorRegistry() *plan.Registry {
	reg := plan.NewRegistry()
	for _, typ := range executorRegistry().Types() {
		reg.Register(typ)
	}
	return reg
}

func init() {
	batchCmd.AddCommand(batchInitCmd)
	batchInitCmd.Flags().String("snapshot", "", "Snapshot ID this batch executes against (required)")
	batchInitCmd.Flags().String("pipeline", "full", "Named pipeline from the pipelines bundle")
	batchInitCmd.Flags().String("pipelines-file", "pipelines.yaml", "Path to the pipelines.yaml bundle")
	_ = batchInitCmd.MarkFlagRequired("snapshot")
}
