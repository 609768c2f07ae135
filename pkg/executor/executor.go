// Package executor defines the interface that drives CodeBatch's
// external analyses: a pure, deterministic function over a shard's
// files and a scoped view of its own task graph.
package executor

import (
	"context"

	"github.com/cuemby/codebatch/pkg/types"
)

// File is one entry of a shard's files_iter: the subset of a
// snapshot's files whose path_key hashes into this shard.
type File struct {
	Path     string
	PathKey  string
	Object   string
	Size     int64
	LangHint string
	TextHash string

	// Content holds the file's bytes, read from CAS by the runner
	// before invocation. Executors have no CAS handle of their own —
	// iter_prior_outputs and put_object are the only store access
	// executors get — so content must already be in hand.
	Content []byte
}

// Context is the scoped view an executor is given into its own
// shard's prior outputs and the object store.
type Context interface {
	// IterPriorOutputs returns records emitted earlier in this same
	// shard by an upstream task (kind == "" means all kinds).
	IterPriorOutputs(taskID, kind string) ([]types.OutputRecord, error)

	// PutObject stores bytes in CAS and returns their hash. Safe to
	// call mid-executor because CAS is add-only.
	PutObject(data []byte) (string, error)
}

// Func is the executor interface itself: executor(config, files_iter,
// context) → iter<output_record>. Implementations MUST be
// deterministic over (config, files, prior outputs); MUST NOT set ts
// on emitted records (the runner stamps it); MUST NOT depend on
// iteration order beyond path_key ASC; MUST NOT read outside files
// and context.
type Func func(ctx context.Context, config map[string]any, files []File, ectx Context) ([]types.OutputRecord, error)

// Registry maps executor type names (as used in plan.json `type`) to
// their implementation.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register binds a type name to its executor implementation.
func (r *Registry) Register(typ string, fn Func) {
	r.funcs[typ] = fn
}

// Lookup returns the executor bound to typ, or false if unregistered.
func (r *Registry) Lookup(typ string) (Func, bool) {
	fn, ok := r.funcs[typ]
	return fn, ok
}

// Types returns every registered type; used to build a plan.Registry.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.funcs))
	for t := range r.funcs {
		out = append(out, t)
	}
	return out
}
