package builtin

import (
	"context"
	"encoding/json"

	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/types"
)

// astSummary is the payload stored in CAS for a "parse" record.
type astSummary struct {
	LineCount   int `json:"line_count"`
	ImportCount int `json:"import_count"`
	DefCount    int `json:"def_count"`
	ClassCount  int `json:"class_count"`
}

// Parse emits one ast record per file summarizing line and symbol
// counts. Other builtin executors re-derive their own parse rather
// than reading Parse's output, keeping each executor a pure function
// of (config, files, prior_outputs) with no implicit coupling.
func Parse(_ context.Context, _ map[string]any, files []executor.File, ectx executor.Context) ([]types.OutputRecord, error) {
	var out []types.OutputRecord
	for _, f := range files {
		ast := parse(string(f.Content))
		summary := astSummary{
			LineCount:   len(ast.Lines),
			ImportCount: len(ast.Imports),
			DefCount:    len(ast.Defs),
			ClassCount:  len(ast.Classes),
		}
		b, err := json.Marshal(summary)
		if err != nil {
			return nil, err
		}
		hash, err := ectx.PutObject(b)
		if err != nil {
			return nil, err
		}
		out = append(out, types.OutputRecord{
			Path:   f.Path,
			Kind:   types.KindAST,
			Object: hash,
			Format: "json",
		})
	}
	return out, nil
}
