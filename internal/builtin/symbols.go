package builtin

import (
	"context"

	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/types"
)

// Symbols emits symbol records for every top-level def and class name.
func Symbols(_ context.Context, _ map[string]any, files []executor.File, _ executor.Context) ([]types.OutputRecord, error) {
	var out []types.OutputRecord
	for _, f := range files {
		ast := parse(string(f.Content))

		for _, d := range ast.Defs {
			out = append(out, types.OutputRecord{
				Path:       f.Path,
				Kind:       types.KindSymbol,
				Name:       d.Name,
				SymbolType: "function",
				Scope:      "module",
				Line:       d.Line,
			})
		}
		for _, c := range ast.Classes {
			out = append(out, types.OutputRecord{
				Path:       f.Path,
				Kind:       types.KindSymbol,
				Name:       c.Name,
				SymbolType: "class",
				Scope:      "module",
				Line:       c.Line,
			})
		}
	}
	return out, nil
}
