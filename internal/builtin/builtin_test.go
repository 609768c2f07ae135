package builtin

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/executor"
	"github.com/cuemby/codebatch/pkg/types"
)

type fakeContext struct {
	objects map[string][]byte
}

func newFakeContext() *fakeContext {
	return &fakeContext{objects: make(map[string][]byte)}
}

func (f *fakeContext) IterPriorOutputs(taskID, kind string) ([]types.OutputRecord, error) {
	return nil, nil
}

func (f *fakeContext) PutObject(data []byte) (string, error) {
	hash := fmt.Sprintf("fake-%d", len(f.objects))
	f.objects[hash] = data
	return hash, nil
}

const scenarioSource = "import sys\ndef f():\n  x=1\n  return 42\n"

func TestLintScenario2(t *testing.T) {
	files := []executor.File{{Path: "fixture.py", Content: []byte(scenarioSource)}}
	records, err := Lint(context.Background(), nil, files, newFakeContext())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "L101", records[0].Code)
	assert.Equal(t, "Unused import 'sys'", records[0].Message)
	assert.Equal(t, 1, records[0].Line)

	assert.Equal(t, "L102", records[1].Code)
	assert.Equal(t, "Unused variable 'x'", records[1].Message)
	assert.Equal(t, 3, records[1].Line)
}

func TestAnalyzeScenario2(t *testing.T) {
	files := []executor.File{{Path: "fixture.py", Content: []byte(scenarioSource)}}
	records, err := Analyze(context.Background(), nil, files, newFakeContext())
	require.NoError(t, err)
	require.Len(t, records, 3)

	byMetric := map[string]float64{}
	for _, r := range records {
		byMetric[r.Metric] = r.Value
	}
	assert.Equal(t, 1.0, byMetric["complexity"])
	assert.Equal(t, 1.0, byMetric["function_count"])
	assert.Equal(t, 1.0, byMetric["import_count"])
}

func TestSymbolsScenario2(t *testing.T) {
	files := []executor.File{{Path: "fixture.py", Content: []byte(scenarioSource)}}
	records, err := Symbols(context.Background(), nil, files, newFakeContext())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "f", records[0].Name)
	assert.Equal(t, "function", records[0].SymbolType)
}

func TestParseEmitsASTRecordPerFile(t *testing.T) {
	ctx := newFakeContext()
	files := []executor.File{
		{Path: "a.py", Content: []byte(scenarioSource)},
		{Path: "b.py", Content: []byte("x = 1\n")},
	}
	records, err := Parse(context.Background(), nil, files, ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, types.KindAST, r.Kind)
		assert.NotEmpty(t, r.Object)
		assert.Contains(t, ctx.objects, r.Object)
	}
}

func TestLintNoUnusedWhenReferenced(t *testing.T) {
	source := "import sys\ndef f():\n  x=1\n  return x\n\nsys.exit(0)\n"
	files := []executor.File{{Path: "clean.py", Content: []byte(source)}}
	records, err := Lint(context.Background(), nil, files, newFakeContext())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRegisterAll(t *testing.T) {
	reg := executor.NewRegistry()
	RegisterAll(reg)
	for _, typ := range []string{"parse", "lint", "analyze", "symbols"} {
		_, ok := reg.Lookup(typ)
		assert.True(t, ok, "expected %s registered", typ)
	}
}
