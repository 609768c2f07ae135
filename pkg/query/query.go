// Package query implements CodeBatch's authoritative scan engine:
// reading a batch's committed outputs.index.jsonl files
// directly, with no cache and no global locks, returning records in
// canonical order.
package query

import (
	"sort"

	"github.com/cuemby/codebatch/pkg/outputindex"
	"github.com/cuemby/codebatch/pkg/shard"
	"github.com/cuemby/codebatch/pkg/store"
	"github.com/cuemby/codebatch/pkg/types"
)

// Filter narrows query_outputs. Zero-value fields mean "no filter on
// this dimension".
type Filter struct {
	TaskID   string
	Kind     string
	Path     string
	Severity string
	Code     string
}

// matches reports whether rec satisfies f.
func (f Filter) matches(rec types.OutputRecord) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Path != "" && rec.Path != f.Path {
		return false
	}
	if f.Severity != "" && rec.Severity != f.Severity {
		return false
	}
	if f.Code != "" && rec.Code != f.Code {
		return false
	}
	return true
}

// Outputs scans every shard of the given task(s) within batchID and
// returns matching records in canonical order: (path ASC, kind ASC,
// line ASC, column ASC, code ASC). If f.TaskID is empty, every task in
// the batch's plan is scanned.
func Outputs(r *store.Root, batchID string, f Filter) ([]types.OutputRecord, error) {
	taskIDs, err := taskIDsFor(r, batchID, f.TaskID)
	if err != nil {
		return nil, err
	}

	var out []types.OutputRecord
	for _, taskID := range taskIDs {
		for _, shardID := range shard.AllIDs() {
			shardDir := r.ShardDir(batchID, taskID, shardID)
			if !outputindex.Exists(shardDir) {
				continue
			}
			records, err := outputindex.Read(shardDir)
			if err != nil {
				return nil, err
			}
			for _, rec := range records {
				if f.matches(rec) {
					out = append(out, rec)
				}
			}
		}
	}

	sortCanonical(out)
	return out, nil
}

// Diagnostics is sugar for Outputs with Kind fixed to "diagnostic".
func Diagnostics(r *store.Root, batchID string, f Filter) ([]types.OutputRecord, error) {
	f.Kind = types.KindDiagnostic
	return Outputs(r, batchID, f)
}

// StatsByKind counts records grouped by kind.
func StatsByKind(records []types.OutputRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}

// SeverityCode is a grouping key for StatsBySeverityCode.
type SeverityCode struct {
	Severity string
	Code     string
}

// StatsBySeverityCode counts diagnostic records grouped by (severity, code).
func StatsBySeverityCode(records []types.OutputRecord) map[SeverityCode]int {
	counts := make(map[SeverityCode]int)
	for _, r := range records {
		if r.Kind != types.KindDiagnostic {
			continue
		}
		counts[SeverityCode{Severity: r.Severity, Code: r.Code}]++
	}
	return counts
}

func sortCanonical(records []types.OutputRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Code < b.Code
	})
}

func taskIDsFor(r *store.Root, batchID, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	plan, err := r.LoadPlan(batchID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		ids = append(ids, t.TaskID)
	}
	return ids, nil
}
