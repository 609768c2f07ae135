package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/types"
)

func registryWithBuiltins() *Registry {
	r := NewRegistry()
	r.Register("parse")
	r.Register("lint")
	r.Register("analyze")
	r.Register("symbols")
	return r
}

func TestValidateAcceptsWellFormedPlan(t *testing.T) {
	p := &types.Plan{Tasks: []types.PlanTask{
		{TaskID: "parse", Type: "parse"},
		{TaskID: "lint", Type: "lint", Deps: []string{"parse"}},
		{TaskID: "analyze", Type: "analyze", Deps: []string{"parse"}},
	}}
	assert.NoError(t, Validate(p, registryWithBuiltins()))
}

func TestValidateRejectsDuplicateID(t *testing.T) {
	p := &types.Plan{Tasks: []types.PlanTask{
		{TaskID: "parse", Type: "parse"},
		{TaskID: "parse", Type: "lint"},
	}}
	assert.Error(t, Validate(p, registryWithBuiltins()))
}

func TestValidateRejectsForwardDep(t *testing.T) {
	p := &types.Plan{Tasks: []types.PlanTask{
		{TaskID: "lint", Type: "lint", Deps: []string{"parse"}},
		{TaskID: "parse", Type: "parse"},
	}}
	assert.Error(t, Validate(p, registryWithBuiltins()))
}

func TestValidateRejectsUnknownType(t *testing.T) {
	p := &types.Plan{Tasks: []types.PlanTask{
		{TaskID: "mystery", Type: "does-not-exist"},
	}}
	assert.Error(t, Validate(p, registryWithBuiltins()))
}

func TestValidateRejectsSelfDep(t *testing.T) {
	p := &types.Plan{Tasks: []types.PlanTask{
		{TaskID: "parse", Type: "parse", Deps: []string{"parse"}},
	}}
	assert.Error(t, Validate(p, registryWithBuiltins()))
}

func TestDepsSatisfied(t *testing.T) {
	doneTasks := map[string]map[string]types.ShardState{
		"parse": {"00": types.ShardDone, "01": types.ShardFailed},
	}
	assert.True(t, DepsSatisfied([]string{"parse"}, "00", doneTasks))
	assert.False(t, DepsSatisfied([]string{"parse"}, "01", doneTasks))
	assert.False(t, DepsSatisfied([]string{"missing"}, "00", doneTasks))
}

func TestLoadBundleAndMaterializePlan(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "pipelines.yaml")
	content := `
pipelines:
  - name: full
    tasks:
      - task_id: parse
        type: parse
      - task_id: lint
        type: lint
        deps: [parse]
      - task_id: analyze
        type: analyze
        deps: [parse]
      - task_id: symbols
        type: symbols
        deps: [parse]
`
	require.NoError(t, os.WriteFile(bundlePath, []byte(content), 0o644))

	bundle, err := LoadBundle(bundlePath)
	require.NoError(t, err)

	pipeline, err := bundle.Find("full")
	require.NoError(t, err)
	assert.Len(t, pipeline.Tasks, 4)

	p := pipeline.ToPlan()
	require.NoError(t, Validate(p, registryWithBuiltins()))
	assert.Equal(t, "full", p.Pipeline)
}

func TestBundleFindMissingPipeline(t *testing.T) {
	b := &Bundle{Pipelines: []Pipeline{{Name: "full"}}}
	_, err := b.Find("nope")
	assert.Error(t, err)
}

