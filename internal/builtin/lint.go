package builtin

import (
	"context"
	"fmt"

	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/types"
)

// Lint emits diagnostic records for unused imports (L101) and unused
// simple assignments (L102).
func Lint(_ context.Context, _ map[string]any, files []executor.File, _ executor.Context) ([]types.OutputRecord, error) {
	var out []types.OutputRecord
	for _, f := range files {
		ast := parse(string(f.Content))

		for _, imp := range ast.Imports {
			if !referencedOutsideLine(ast.Lines, imp.Name, imp.Line) {
				out = append(out, types.OutputRecord{
					Path:     f.Path,
					Kind:     types.KindDiagnostic,
					Severity: "warning",
					Code:     "L101",
					Message:  fmt.Sprintf("Unused import '%s'", imp.Name),
					Line:     imp.Line,
				})
			}
		}

		for _, a := range ast.Assigns {
			if !referencedOutsideLine(ast.Lines, a.Name, a.Line) {
				out = append(out, types.OutputRecord{
					Path:     f.Path,
					Kind:     types.KindDiagnostic,
					Severity: "warning",
					Code:     "L102",
					Message:  fmt.Sprintf("Unused variable '%s'", a.Name),
					Line:     a.Line,
				})
			}
		}
	}
	return out, nil
}
