// Package plan validates and loads CodeBatch plans: the
// ordered task list materialized into a batch's plan.json, and the
// named pipeline bundles that generate one.
package plan

import (
	"fmt"

	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/types"
)

// Registry tracks which executor types are known at validation time.
// The zero value is not usable; use NewRegistry.
type Registry struct {
	types map[string]bool
}

// NewRegistry returns an empty executor type registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]bool)}
}

// Register marks an executor type as available for plan validation.
func (r *Registry) Register(typ string) {
	r.types[typ] = true
}

// Has reports whether typ was registered.
func (r *Registry) Has(typ string) bool {
	return r.types[typ]
}

// Validate checks a plan's structural invariants: unique task IDs,
// deps acyclic and strictly backward-referencing, every type registered.
func Validate(p *types.Plan, reg *Registry) error {
	seen := make(map[string]int, len(p.Tasks))
	for i, task := range p.Tasks {
		if task.TaskID == "" {
			return cberrors.New(cberrors.CodeSchemaError, fmt.Sprintf("plan: task at index %d has empty task_id", i))
		}
		if _, dup := seen[task.TaskID]; dup {
			return cberrors.New(cberrors.CodeSchemaError, fmt.Sprintf("plan: duplicate task_id %q", task.TaskID))
		}
		seen[task.TaskID] = i

		if reg != nil && !reg.Has(task.Type) {
			return cberrors.New(cberrors.CodeSchemaError, fmt.Sprintf("plan: task %q has unregistered type %q", task.TaskID, task.Type))
		}

		for _, dep := range task.Deps {
			depIdx, ok := seen[dep]
			if !ok {
				return cberrors.New(cberrors.CodeSchemaError, fmt.Sprintf("plan: task %q depends on unknown or forward task %q", task.TaskID, dep))
			}
			if depIdx >= i {
				return cberrors.New(cberrors.CodeSchemaError, fmt.Sprintf("plan: task %q dep %q is not strictly earlier", task.TaskID, dep))
			}
		}
	}
	return nil
}

// DepsSatisfied reports whether every dependency task_id in deps is
// present and done in the given per-task-per-shard state map.
func DepsSatisfied(deps []string, shardID string, doneTasks map[string]map[string]types.ShardState) bool {
	for _, dep := range deps {
		shards, ok := doneTasks[dep]
		if !ok {
			return false
		}
		if shards[shardID] != types.ShardDone {
			return false
		}
	}
	return true
}

// ErrDepsUnsatisfied is returned by runners refusing to start a shard
// whose upstream dependency shard has not reached ShardDone.
var ErrDepsUnsatisfied = cberrors.New(cberrors.CodeDepsUnsatisfied, "dependency shard not done")
