// Package diff implements CodeBatch's canonical-key diff engine:
// comparing two batches' output records by a kind-specific
// canonical key, classifying added/removed/changed, and deriving
// regressions/improvements from diagnostic severity.
package diff

import (
	"fmt"
	"sort"

	"github.com/cuemby/codebatch/pkg/types"
)

// Changed is a pair of records sharing a canonical key whose remaining
// fields differ.
type Changed struct {
	Before types.OutputRecord
	After  types.OutputRecord
}

// Result is the outcome of comparing batch A against batch B.
type Result struct {
	Added   []types.OutputRecord
	Removed []types.OutputRecord
	Changed []Changed
}

// Compare diffs two record sets already scoped to their batches (via
// pkg/query or pkg/cache), returning {added, removed, changed} sorted
// by canonical key.
func Compare(a, b []types.OutputRecord) Result {
	keyedA := indexByKey(a)
	keyedB := indexByKey(b)

	var result Result
	for key, recA := range keyedA {
		recB, ok := keyedB[key]
		if !ok {
			result.Removed = append(result.Removed, recA)
			continue
		}
		if !equalIgnoringEphemeral(recA, recB) {
			result.Changed = append(result.Changed, Changed{Before: recA, After: recB})
		}
	}
	for key, recB := range keyedB {
		if _, ok := keyedA[key]; !ok {
			result.Added = append(result.Added, recB)
		}
	}

	sortRecords(result.Added)
	sortRecords(result.Removed)
	sort.SliceStable(result.Changed, func(i, j int) bool {
		return canonicalKey(result.Changed[i].After) < canonicalKey(result.Changed[j].After)
	})
	return result
}

// Regressions returns added diagnostics plus changed diagnostics whose
// severity worsened on the info < warning < error scale.
func Regressions(r Result) []types.OutputRecord {
	var out []types.OutputRecord
	for _, rec := range r.Added {
		if rec.Kind == types.KindDiagnostic {
			out = append(out, rec)
		}
	}
	for _, c := range r.Changed {
		if c.After.Kind != types.KindDiagnostic {
			continue
		}
		if types.SeverityOrder[c.After.Severity] > types.SeverityOrder[c.Before.Severity] {
			out = append(out, c.After)
		}
	}
	sortRecords(out)
	return out
}

// Improvements returns removed diagnostics plus changed diagnostics
// whose severity improved. It mirrors Regressions over severity's
// reversed comparison.
func Improvements(r Result) []types.OutputRecord {
	var out []types.OutputRecord
	for _, rec := range r.Removed {
		if rec.Kind == types.KindDiagnostic {
			out = append(out, rec)
		}
	}
	for _, c := range r.Changed {
		if c.After.Kind != types.KindDiagnostic {
			continue
		}
		if types.SeverityOrder[c.After.Severity] < types.SeverityOrder[c.Before.Severity] {
			out = append(out, c.Before)
		}
	}
	sortRecords(out)
	return out
}

// canonicalKey builds the kind-specific comparison key.
// Records of unrecognized kind fall back to the "other" row: (kind, path).
func canonicalKey(r types.OutputRecord) string {
	switch r.Kind {
	case types.KindDiagnostic:
		return fmt.Sprintf("%s\x1f%s\x1f%d\x1f%d\x1f%s", r.Kind, r.Path, r.Line, r.Column, r.Code)
	case types.KindMetric:
		return fmt.Sprintf("%s\x1f%s\x1f%s", r.Kind, r.Path, r.Metric)
	case types.KindSymbol:
		return fmt.Sprintf("%s\x1f%s\x1f%s\x1f%d", r.Kind, r.Path, r.Name, r.Line)
	case types.KindAST:
		return fmt.Sprintf("%s\x1f%s\x1f%s", r.Kind, r.Path, r.Object)
	case types.KindEdge:
		return fmt.Sprintf("%s\x1f%s\x1f%s\x1f%s", r.Kind, r.Path, r.EdgeType, r.Target)
	default:
		return fmt.Sprintf("%s\x1f%s", r.Kind, r.Path)
	}
}

func indexByKey(records []types.OutputRecord) map[string]types.OutputRecord {
	out := make(map[string]types.OutputRecord, len(records))
	for _, r := range records {
		out[canonicalKey(r)] = r
	}
	return out
}

// equalIgnoringEphemeral compares two records with the same canonical
// key, ignoring ts, batch_id, and shard_id (the ephemeral
// fields). snapshot_id is meaningful (batches may span snapshots) and
// is NOT ignored.
func equalIgnoringEphemeral(a, b types.OutputRecord) bool {
	a.TS, b.TS = 0, 0
	a.BatchID, b.BatchID = "", ""
	a.ShardID, b.ShardID = "", ""
	return a == b
}

func sortRecords(records []types.OutputRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return canonicalKey(records[i]) < canonicalKey(records[j])
	})
}
