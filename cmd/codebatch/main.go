package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/log"
	"github.com/cuemby/codebatch/pkg/metrics"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "codebatch",
	Short: "Content-addressed execution substrate for code analysis pipelines",
	Long: `codebatch turns a directory into an immutable, content-addressed
snapshot, partitions it into deterministic shards, drives registered
analysis executors over them, and commits their output as append-only
JSONL — with an optional LMDB cache that never outranks the JSONL it
was built from.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("codebatch version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("store", "", "Store root path (falls back to CODEBATCH_STORE)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit machine-readable JSON output and error envelopes")
	rootCmd.PersistentFlags().Bool("serve-metrics", false, "Serve Prometheus metrics on :9090 for the lifetime of the command")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(runShardCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(indexBuildCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(diffCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})

	if serve, _ := rootCmd.PersistentFlags().GetBool("serve-metrics"); serve {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(":9090", mux); err != nil {
				log.Logger.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}
}
