package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/types"
)

// PipelineTask is one entry of a pipeline template in pipelines.yaml.
type PipelineTask struct {
	TaskID string         `yaml:"task_id"`
	Type   string         `yaml:"type"`
	Deps   []string       `yaml:"deps"`
	Config map[string]any `yaml:"config"`
}

// Pipeline is a named, reusable plan template ("full" →
// parse→{analyze,symbols,lint}).
type Pipeline struct {
	Name  string         `yaml:"name"`
	Tasks []PipelineTask `yaml:"tasks"`
}

// Bundle is the parsed contents of a pipelines.yaml file: a set of
// named pipeline templates.
type Bundle struct {
	Pipelines []Pipeline `yaml:"pipelines"`
}

// LoadBundle parses a pipelines.yaml bundle from path.
func LoadBundle(path string) (*Bundle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: read pipeline bundle: %w", err)
	}
	var bundle Bundle
	if err := yaml.Unmarshal(b, &bundle); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeSchemaError, err, "pipelines.yaml malformed")
	}
	return &bundle, nil
}

// Find returns the named pipeline template from the bundle.
func (b *Bundle) Find(name string) (*Pipeline, error) {
	for i := range b.Pipelines {
		if b.Pipelines[i].Name == name {
			return &b.Pipelines[i], nil
		}
	}
	return nil, cberrors.New(cberrors.CodeInvalidArgument, fmt.Sprintf("plan: no pipeline named %q", name))
}

// ToPlan materializes a pipeline template into a concrete plan.json
// body for a given snapshot's batch.
func (p *Pipeline) ToPlan() *types.Plan {
	tasks := make([]types.PlanTask, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, types.PlanTask{
			TaskID: t.TaskID,
			Type:   t.Type,
			Deps:   t.Deps,
			Config: t.Config,
		})
	}
	return &types.Plan{
		SchemaName:    "codebatch.plan",
		SchemaVersion: types.SchemaVersion,
		Pipeline:      p.Name,
		Tasks:         tasks,
	}
}
