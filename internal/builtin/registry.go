package builtin

import "github.com/cuemby/codebatch/pkg/executor"

// RegisterAll binds every reference executor into reg under the type
// names used by pipelines.yaml's "full" pipeline.
func RegisterAll(reg *executor.Registry) {
	reg.Register("parse", Parse)
	reg.Register("lint", Lint)
	reg.Register("analyze", Analyze)
	reg.Register("symbols", Symbols)
}
