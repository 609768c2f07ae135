package builtin

import (
	"context"

	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/types"
)

// Analyze emits complexity, function_count, and import_count metric
// records per file.
func Analyze(_ context.Context, _ map[string]any, files []executor.File, _ executor.Context) ([]types.OutputRecord, error) {
	var out []types.OutputRecord
	for _, f := range files {
		ast := parse(string(f.Content))

		out = append(out,
			types.OutputRecord{
				Path:   f.Path,
				Kind:   types.KindMetric,
				Metric: "complexity",
				Value:  float64(1 + ast.BranchCount),
			},
			types.OutputRecord{
				Path:   f.Path,
				Kind:   types.KindMetric,
				Metric: "function_count",
				Value:  float64(len(ast.Defs)),
			},
			types.OutputRecord{
				Path:   f.Path,
				Kind:   types.KindMetric,
				Metric: "import_count",
				Value:  float64(len(ast.Imports)),
			},
		)
	}
	return out, nil
}
