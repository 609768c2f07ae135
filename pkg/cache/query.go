package cache

import (
	"encoding/json"
	"sort"

	"github.com/PowerDNS/lmdb-go/lmdb"

	"github.com/cuemby/codebatch/pkg/query"
	"github.com/cuemby/codebatch/pkg/types"
)

// Cache is an opened LMDB-backed query surface for one batch.
type Cache struct {
	env        *lmdb.Env
	snapshotID string
	batchID    string
}

// Close releases the underlying LMDB environment.
func (c *Cache) Close() error {
	return c.env.Close()
}

// Outputs answers query_outputs by cursor-scanning outputs_by_kind
// over the narrowest applicable key prefix, matching the scan engine's
// canonical order.
func (c *Cache) Outputs(f query.Filter) ([]types.OutputRecord, error) {
	var out []types.OutputRecord
	err := c.env.View(func(txn *lmdb.Txn) error {
		dbi, err := txn.OpenDBI(dbOutputsByKind, 0)
		if err != nil {
			return err
		}
		prefix := []string{c.snapshotID, c.batchID}
		if f.TaskID != "" {
			prefix = append(prefix, f.TaskID)
			if f.Kind != "" {
				prefix = append(prefix, f.Kind)
			}
		}

		records, err := scanPrefix(txn, dbi, prefix)
		if err != nil {
			return err
		}
		for _, b := range records {
			var rec types.OutputRecord
			if err := json.Unmarshal(b, &rec); err != nil {
				return err
			}
			if matchesFilter(rec, f) {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortCanonicalRecords(out)
	return out, nil
}

// Diagnostics answers query_diagnostics. When f.TaskID and either
// f.Severity or f.Code are set, it cursor-seeks the severity- or
// code-keyed sub-database directly instead of scanning every
// diagnostic in outputs_by_kind and filtering in Go — the same
// narrowest-applicable-prefix approach Outputs uses for kind. Code
// takes precedence when both are given, since diags_by_code's key
// orders code ahead of severity and so can still narrow on a severity
// prefix appended after it.
func (c *Cache) Diagnostics(f query.Filter) ([]types.OutputRecord, error) {
	f.Kind = types.KindDiagnostic
	if f.TaskID != "" && f.Code != "" {
		return c.scanDiagsByCode(f)
	}
	if f.TaskID != "" && f.Severity != "" {
		return c.scanDiagsBySev(f)
	}
	return c.Outputs(f)
}

// scanDiagsBySev cursor-seeks diags_by_sev on the
// (snapshot, batch, task, severity[, code]) prefix.
func (c *Cache) scanDiagsBySev(f query.Filter) ([]types.OutputRecord, error) {
	prefix := []string{c.snapshotID, c.batchID, f.TaskID, f.Severity}
	if f.Code != "" {
		prefix = append(prefix, f.Code)
	}
	return c.scanDiagsDBI(dbDiagsBySev, prefix, f)
}

// scanDiagsByCode cursor-seeks diags_by_code on the
// (snapshot, batch, task, code[, severity]) prefix.
func (c *Cache) scanDiagsByCode(f query.Filter) ([]types.OutputRecord, error) {
	prefix := []string{c.snapshotID, c.batchID, f.TaskID, f.Code}
	if f.Severity != "" {
		prefix = append(prefix, f.Severity)
	}
	return c.scanDiagsDBI(dbDiagsByCode, prefix, f)
}

func (c *Cache) scanDiagsDBI(dbName string, prefix []string, f query.Filter) ([]types.OutputRecord, error) {
	var out []types.OutputRecord
	err := c.env.View(func(txn *lmdb.Txn) error {
		dbi, err := txn.OpenDBI(dbName, 0)
		if err != nil {
			return err
		}
		records, err := scanPrefix(txn, dbi, prefix)
		if err != nil {
			return err
		}
		for _, b := range records {
			var rec types.OutputRecord
			if err := json.Unmarshal(b, &rec); err != nil {
				return err
			}
			if matchesFilter(rec, f) {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortCanonicalRecords(out)
	return out, nil
}

// StatsByKind counts the task's records per kind, recomputed from the
// records Outputs returns; the stats sub-database is not read.
func (c *Cache) StatsByKind(taskID string) (map[string]int, error) {
	records, err := c.Outputs(query.Filter{TaskID: taskID})
	if err != nil {
		return nil, err
	}
	return query.StatsByKind(records), nil
}

func matchesFilter(rec types.OutputRecord, f query.Filter) bool {
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

// scanPrefix returns every value whose key begins with the given
// composite key parts, in key order.
func scanPrefix(txn *lmdb.Txn, dbi lmdb.DBI, parts []string) ([][]byte, error) {
	cur, err := txn.OpenCursor(dbi)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	prefix := string(joinKey(parts...))
	var out [][]byte

	k, v, err := cur.Get([]byte(prefix), nil, lmdb.SetRange)
	for {
		if err != nil {
			if lmdb.IsNotFound(err) {
				break
			}
			return nil, err
		}
		if !hasPrefix(k, parts...) {
			break
		}
		valCopy := make([]byte, len(v))
		copy(valCopy, v)
		out = append(out, valCopy)
		k, v, err = cur.Get(nil, nil, lmdb.Next)
	}
	return out, nil
}

func sortCanonicalRecords(records []types.OutputRecord) {
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
