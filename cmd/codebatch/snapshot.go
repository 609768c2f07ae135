package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/snapshot"
	"github.com/cuemby/codebatch/pkg/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <dir>",
	Short: "Build an immutable content-addressed snapshot of a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath := storeFlag(cmd)
		root, err := store.Open(store.ResolveFromEnv(storePath))
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		include, _ := cmd.Flags().GetStringSlice("include")
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		followSymlinks, _ := cmd.Flags().GetBool("follow-symlinks")

		casStore, err := cas.Open(root.ObjectsDir())
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		snap, err := snapshot.Build(root.Path, args[0], casStore, snapshot.Options{
			Include:        include,
			Exclude:        exclude,
			FollowSymlinks: followSymlinks,
		})
		if err != nil {
			reportErr(cmd, cberrors.Wrap(cberrors.CodeInternal, err, "snapshot build failed"))
			return err
		}
		fmt.Println(snap.SnapshotID)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringSlice("include", nil, "Glob patterns to include (default: everything)")
	snapshotCmd.Flags().StringSlice("exclude", nil, "Glob patterns to exclude, applied after --include")
	snapshotCmd.Flags().Bool("follow-symlinks", false, "Follow symlinked files and directories")
}
