// Package pathnorm canonicalizes and key-normalizes file paths so the
// same logical file compares equal across platforms.
package pathnorm

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Result is the output of Canonicalize: the canonical display path and
// its lowercased, NFC-normalized comparison key.
type Result struct {
	Path    string
	PathKey string
}

// Canonicalize rejects absolute paths and "."/".." segments, replaces OS
// separators with "/", strips a trailing "/", and derives PathKey as the
// lowercased NFC form of Path.
func Canonicalize(raw string) (Result, error) {
	if raw == "" {
		return Result{}, fmt.Errorf("pathnorm: empty path")
	}

	p := strings.ReplaceAll(raw, `\`, "/")
	p = strings.TrimSuffix(p, "/")

	if path.IsAbs(p) || strings.HasPrefix(p, "/") {
		return Result{}, fmt.Errorf("pathnorm: absolute path not allowed: %q", raw)
	}

	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return Result{}, fmt.Errorf("pathnorm: empty path segment in %q", raw)
		case ".", "..":
			return Result{}, fmt.Errorf("pathnorm: %q segment not allowed in %q", seg, raw)
		}
	}

	key := norm.NFC.String(strings.ToLower(p))
	return Result{Path: p, PathKey: key}, nil
}

// Less implements the total order imposed on records for deterministic
// listings: (path_key ASC, insertion_index ASC) — a stable sort on
// PathKey preserves input order on ties, so callers should use a stable
// sort (sort.SliceStable) with this comparator.
func Less(a, b string) bool {
	return a < b
}
