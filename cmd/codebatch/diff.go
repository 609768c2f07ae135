package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/cache"
	"github.com/cuemby/codebatch/pkg/diff"
	"github.com/cuemby/codebatch/pkg/query"
	"github.com/cuemby/codebatch/pkg/store"
)

var diffCmd = &cobra.Command{
	Use:   "diff <batch-a> <batch-b>",
	Short: "Compare the output records of two batches",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		onlyRegressions, _ := cmd.Flags().GetBool("regressions")
		onlyImprovements, _ := cmd.Flags().GetBool("improvements")

		root, err := store.Open(store.ResolveFromEnv(storeFlag(cmd)))
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		qa, err := (cache.Router{}).Open(root, args[0])
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		qb, err := (cache.Router{}).Open(root, args[1])
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		recordsA, err := qa.Outputs(query.Filter{})
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		recordsB, err := qb.Outputs(query.Filter{})
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		result := diff.Compare(recordsA, recordsB)

		if onlyRegressions {
			printRecords(cmd, diff.Regressions(result))
			return nil
		}
		if onlyImprovements {
			printRecords(cmd, diff.Improvements(result))
			return nil
		}

		if jsonFlag(cmd) {
			b, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(b))
			return nil
		}

		for _, r := range result.Added {
			fmt.Fprintf(os.Stdout, "+ %s\t%s\t%s\n", r.Path, r.Kind, r.Message)
		}
		for _, r := range result.Removed {
			fmt.Fprintf(os.Stdout, "- %s\t%s\t%s\n", r.Path, r.Kind, r.Message)
		}
		for _, c := range result.Changed {
			fmt.Fprintf(os.Stdout, "~ %s\t%s\t%s -> %s\n", c.Before.Path, c.Before.Kind, c.Before.Severity, c.After.Severity)
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().Bool("regressions", false, "Print only regressions (new or worsened diagnostics)")
	diffCmd.Flags().Bool("improvements", false, "Print only improvements (fixed or bettered diagnostics)")
}
