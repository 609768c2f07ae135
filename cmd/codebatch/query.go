package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/cache"
	"github.com/cuemby/codebatch/pkg/query"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a batch's outputs, routing through the LMDB cache when valid",
}

var queryOutputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "Query output records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, false)
	},
}

var queryDiagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Query diagnostic records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, true)
	},
}

var queryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print output-count statistics by kind for a batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, _ := cmd.Flags().GetString("batch")
		root, err := store.Open(store.ResolveFromEnv(storeFlag(cmd)))
		if err != nil {
			reportErr(cmd, err)
			return err
		}

		q, err := (cache.Router{}).Open(root, batchID)
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		records, err := q.Outputs(query.Filter{})
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		stats := query.StatsByKind(records)
		if jsonFlag(cmd) {
			b, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(b))
			return nil
		}
		for kind, n := range stats {
			fmt.Printf("%s: %d\n", kind, n)
		}
		return nil
	},
}

func runQuery(cmd *cobra.Command, diagnosticsOnly bool) error {
	batchID, _ := cmd.Flags().GetString("batch")
	taskID, _ := cmd.Flags().GetString("task")
	kind, _ := cmd.Flags().GetString("kind")
	path, _ := cmd.Flags().GetString("path")
	severity, _ := cmd.Flags().GetString("severity")
	code, _ := cmd.Flags().GetString("code")
	strict, _ := cmd.Flags().GetBool("strict")

	root, err := store.Open(store.ResolveFromEnv(storeFlag(cmd)))
	if err != nil {
		reportErr(cmd, err)
		return err
	}

	q, err := (cache.Router{}).Open(root, batchID)
	if err != nil {
		reportErr(cmd, err)
		return err
	}

	f := query.Filter{TaskID: taskID, Kind: kind, Path: path, Severity: severity, Code: code}

	var records []types.OutputRecord
	if diagnosticsOnly {
		records, err = q.Diagnostics(f)
	} else {
		records, err = q.Outputs(f)
	}
	if err != nil {
		reportErr(cmd, err)
		return err
	}

	printRecords(cmd, records)

	if strict && len(records) == 0 {
		os.Exit(1)
	}
	return nil
}

func printRecords(cmd *cobra.Command, records []types.OutputRecord) {
	if jsonFlag(cmd) {
		enc := json.NewEncoder(os.Stdout)
		for _, r := range records {
			_ = enc.Encode(r)
		}
		return
	}
	for _, r := range records {
		fmt.Printf("%s\t%s\t%s\n", r.Path, r.Kind, r.Message)
	}
}

func init() {
	queryCmd.AddCommand(queryOutputsCmd, queryDiagnosticsCmd, queryStatsCmd)
	for _, c := range []*cobra.Command{queryOutputsCmd, queryDiagnosticsCmd} {
		c.Flags().String("batch", "", "Batch ID (required)")
		_ = c.MarkFlagRequired("batch")
		c.Flags().String("task", "", "Restrict to a single task ID")
		c.Flags().String("kind", "", "Restrict to a single output kind")
		c.Flags().String("path", "", "Restrict to a single file path")
		c.Flags().String("severity", "", "Restrict diagnostics to a single severity")
		c.Flags().String("code", "", "Restrict diagnostics to a single diagnostic code")
		c.Flags().Bool("strict", false, "Exit with code 1 when the result set is empty")
	}
	queryStatsCmd.Flags().String("batch", "", "Batch ID (required)")
	_ = queryStatsCmd.MarkFlagRequired("batch")
}
