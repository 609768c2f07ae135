package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/cberrors"
)

// exitCodeFor maps a command error to the process exit code the CLI
// defines: 2 invalid arguments/missing store, 3 internal, 1 otherwise.
func exitCodeFor(err error) int {
	return cberrors.ExitCode(cberrors.CodeOf(err))
}

// reportErr prints err either as a human message on stderr or, when
// --json was passed, as the structured envelope machine consumers parse.
func reportErr(cmd *cobra.Command, err error) {
	jsonOut, _ := cmd.Root().PersistentFlags().GetBool("json")
	if jsonOut {
		b, _ := json.MarshalIndent(cberrors.ToEnvelope(err), "", "  ")
		fmt.Fprintln(os.Stderr, string(b))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// storeFlag returns the raw --store flag value; store.ResolveFromEnv
// applies the CODEBATCH_STORE fallback.
func storeFlag(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("store")
	return v
}

// jsonFlag reports whether --json output was requested.
func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("json")
	return v
}
