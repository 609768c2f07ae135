package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/cache"
	"github.com/cuemby/codebatch/pkg/store"
)

var indexBuildCmd = &cobra.Command{
	Use:   "index-build",
	Short: "Build or refresh the LMDB query-acceleration cache for a batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, _ := cmd.Flags().GetString("batch")
		rebuild, _ := cmd.Flags().GetBool("rebuild")

		root, err := store.Open(store.ResolveFromEnv(storeFlag(cmd)))
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		if err := cache.Build(root, batchID, cache.BuildOptions{Rebuild: rebuild}); err != nil {
			reportErr(cmd, err)
			return err
		}
		fmt.Printf("index built for batch %s\n", batchID)
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().String("batch", "", "Batch ID (required)")
	_ = indexBuildCmd.MarkFlagRequired("batch")
	indexBuildCmd.Flags().Bool("rebuild", false, "Wipe the existing LMDB environment before rebuilding")
}
