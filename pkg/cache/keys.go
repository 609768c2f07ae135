package cache

import (
	"strconv"
	"strings"
)

// unitSeparator is the ASCII 0x1F field delimiter used
// for composite LMDB keys.
const unitSeparator = "\x1f"

const keyVersion = "v1"

func joinKey(parts ...string) []byte {
	return []byte(keyVersion + unitSeparator + strings.Join(parts, unitSeparator))
}

// hasPrefix reports whether key begins with the given composite
// prefix parts, used by cursor range scans over a sub-database.
func hasPrefix(key []byte, parts ...string) bool {
	prefix := string(joinKey(parts...)) + unitSeparator
	return strings.HasPrefix(string(key), prefix) || string(key) == string(joinKey(parts...))
}

func filesByPathKey(snapshotID, path string) []byte {
	return joinKey(snapshotID, path)
}

func outputsByKindKey(snapshotID, batchID, taskID, kind, path string) []byte {
	return joinKey(snapshotID, batchID, taskID, kind, path)
}

func diagsBySevKey(snapshotID, batchID, taskID, severity, code, path string, line, column int) []byte {
	return joinKey(snapshotID, batchID, taskID, severity, code, path, strconv.Itoa(line), strconv.Itoa(column))
}

func diagsByCodeKey(snapshotID, batchID, taskID, code, severity, path string, line, column int) []byte {
	return joinKey(snapshotID, batchID, taskID, code, severity, path, strconv.Itoa(line), strconv.Itoa(column))
}

func statsKindKey(snapshotID, batchID, taskID, kind string) []byte {
	return joinKey(snapshotID, batchID, taskID, "kind", kind)
}

func statsSevCodeKey(snapshotID, batchID, taskID, severity, code string) []byte {
	return joinKey(snapshotID, batchID, taskID, "sevcode", severity, code)
}
