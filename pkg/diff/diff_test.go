package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/codebatch/pkg/types"
)

func TestCompareIdenticalBatchesIsEmpty(t *testing.T) {
	a := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning", BatchID: "b1"},
	}
	b := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning", BatchID: "b2"},
	}
	result := Compare(a, b)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Changed)
}

func TestCompareDetectsAddedAndRemoved(t *testing.T) {
	a := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning"},
	}
	b := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L102", Line: 3, Severity: "warning"},
	}
	result := Compare(a, b)
	assert.Len(t, result.Removed, 1)
	assert.Equal(t, "L101", result.Removed[0].Code)
	assert.Len(t, result.Added, 1)
	assert.Equal(t, "L102", result.Added[0].Code)
	assert.Empty(t, result.Changed)
}

func TestCompareDetectsChangedSeverity(t *testing.T) {
	a := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning"},
	}
	b := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "error"},
	}
	result := Compare(a, b)
	require := assert.New(t)
	require.Empty(result.Added)
	require.Empty(result.Removed)
	require.Len(result.Changed, 1)
	require.Equal("warning", result.Changed[0].Before.Severity)
	require.Equal("error", result.Changed[0].After.Severity)
}

func TestRegressionsIncludesAddedAndWorsened(t *testing.T) {
	a := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning"},
	}
	b := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "error"},
		{Path: "b.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning"},
	}
	result := Compare(a, b)
	regressions := Regressions(result)
	assert.Len(t, regressions, 2)
}

func TestImprovementsIsEmptyWhenOnlyRegressions(t *testing.T) {
	a := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning"},
	}
	b := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "error"},
	}
	result := Compare(a, b)
	assert.Empty(t, Improvements(result))
}

func TestImprovementsIncludesRemovedAndBetteredSeverity(t *testing.T) {
	a := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "error"},
		{Path: "b.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning"},
	}
	b := []types.OutputRecord{
		{Path: "a.py", Kind: types.KindDiagnostic, Code: "L101", Line: 1, Severity: "warning"},
	}
	result := Compare(a, b)
	improvements := Improvements(result)
	assert.Len(t, improvements, 2)
}

func TestCanonicalKeyDistinguishesMetricAndSymbolKinds(t *testing.T) {
	metric := types.OutputRecord{Path: "a.py", Kind: types.KindMetric, Metric: "complexity"}
	symbol := types.OutputRecord{Path: "a.py", Kind: types.KindSymbol, Name: "f", Line: 2}
	assert.NotEqual(t, canonicalKey(metric), canonicalKey(symbol))
}
