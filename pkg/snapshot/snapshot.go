// Package snapshot builds CodeBatch's immutable, content-addressed
// manifest of a source tree.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/codebatch/pkg/cas"
	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/log"
	"github.com/cuemby/codebatch/pkg/metrics"
	"github.com/cuemby/codebatch/pkg/pathnorm"
	"github.com/cuemby/codebatch/pkg/types"
)

// Options configure a snapshot build.
type Options struct {
	Include        []string // glob patterns; empty means include everything
	Exclude        []string // glob patterns, applied after Include
	FollowSymlinks bool
}

var langHints = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".rb":   "ruby",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

// Build walks root, hashes every matched file into store, and writes
// snapshots/<snapshot_id>/{snapshot.json,files.index.jsonl} under
// storeRoot. Returns the resulting Snapshot record.
func Build(storeRoot, root string, store *cas.Store, opts Options) (*types.Snapshot, error) {
	timer := metrics.NewTimer()
	logger := log.WithComponent("snapshot-builder")

	entries, err := walk(root, opts, store)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PathKey < entries[j].PathKey
	})

	if err := detectCollisions(entries); err != nil {
		return nil, err
	}

	indexBytes, err := serializeIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("snapshot: serialize index: %w", err)
	}
	sum := sha256.Sum256(indexBytes)
	snapshotID := hex.EncodeToString(sum[:])

	snapDir := filepath.Join(storeRoot, "snapshots", snapshotID)
	if existing, err := Load(storeRoot, snapshotID); err == nil {
		return existing, nil
	}
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: mkdir %q: %w", snapDir, err)
	}

	indexPath := filepath.Join(snapDir, "files.index.jsonl")
	if err := writeFileAtomic(indexPath, indexBytes); err != nil {
		return nil, err
	}

	snap := &types.Snapshot{
		SchemaName:    "codebatch.snapshot",
		SchemaVersion: types.SchemaVersion,
		SnapshotID:    snapshotID,
		CreatedAt:     time.Now().UTC(),
		Root:          root,
		FileCount:     len(entries),
	}
	snapBytes, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal snapshot.json: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(snapDir, "snapshot.json"), snapBytes); err != nil {
		return nil, err
	}

	metrics.SnapshotFilesTotal.WithLabelValues(snapshotID).Set(float64(len(entries)))
	timer.ObserveDuration(metrics.SnapshotBuildDuration)
	logger.Info().Str("snapshot_id", snapshotID).Int("files", len(entries)).Msg("snapshot built")

	return snap, nil
}

// Load reads a previously built snapshot's manifest.
func Load(storeRoot, snapshotID string) (*types.Snapshot, error) {
	p := filepath.Join(storeRoot, "snapshots", snapshotID, "snapshot.json")
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cberrors.New(cberrors.CodeSnapshotNotFound, "snapshot "+snapshotID+" not found")
		}
		return nil, fmt.Errorf("snapshot: read %q: %w", p, err)
	}
	var snap types.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeSchemaError, err, "snapshot.json malformed")
	}
	return &snap, nil
}

// LoadFileIndex reads a snapshot's files.index.jsonl in stored (already
// canonical) order.
func LoadFileIndex(storeRoot, snapshotID string) ([]types.FileEntry, error) {
	p := filepath.Join(storeRoot, "snapshots", snapshotID, "files.index.jsonl")
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cberrors.New(cberrors.CodeSnapshotNotFound, "snapshot "+snapshotID+" not found")
		}
		return nil, fmt.Errorf("snapshot: read %q: %w", p, err)
	}
	var entries []types.FileEntry
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var fe types.FileEntry
		if err := json.Unmarshal(line, &fe); err != nil {
			return nil, cberrors.Wrap(cberrors.CodeSchemaError, err, "files.index.jsonl malformed")
		}
		entries = append(entries, fe)
	}
	return entries, nil
}

// walk recurses root manually (rather than filepath.WalkDir) so that,
// when FollowSymlinks is set, a symlinked directory can be descended
// into with loop detection keyed on its resolved real path.
func walk(root string, opts Options, store *cas.Store) ([]types.FileEntry, error) {
	var entries []types.FileEntry
	visitedReal := make(map[string]bool)

	rootReal, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot: resolve root %q: %w", root, err)
	}
	visitedReal[rootReal] = true

	var walkDir func(absDir string) error
	walkDir = func(absDir string) error {
		dirEntries, err := os.ReadDir(absDir)
		if err != nil {
			return fmt.Errorf("snapshot: read dir %q: %w", absDir, err)
		}
		for _, d := range dirEntries {
			absPath := filepath.Join(absDir, d.Name())
			rel, err := filepath.Rel(root, absPath)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			isSymlink := d.Type()&fs.ModeSymlink != 0
			isDir := d.IsDir()

			if isSymlink {
				if !opts.FollowSymlinks {
					continue
				}
				real, err := filepath.EvalSymlinks(absPath)
				if err != nil {
					return fmt.Errorf("snapshot: resolve symlink %q: %w", absPath, err)
				}
				if visitedReal[real] {
					return fmt.Errorf("snapshot: symlink loop detected at %q", absPath)
				}
				info, err := os.Stat(absPath) // follows the symlink
				if err != nil {
					return err
				}
				if info.IsDir() {
					visitedReal[real] = true
					if err := walkDir(absPath); err != nil {
						return err
					}
					continue
				}
				isDir = false
			}

			if isDir {
				if err := walkDir(absPath); err != nil {
					return err
				}
				continue
			}

			if !matchesInclude(rel, opts.Include) || matchesExclude(rel, opts.Exclude) {
				continue
			}

			canon, err := pathnorm.Canonicalize(rel)
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(absPath)
			if err != nil {
				return fmt.Errorf("snapshot: read %q: %w", absPath, err)
			}
			hash, err := store.PutBytes(content)
			if err != nil {
				return fmt.Errorf("snapshot: cas put %q: %w", absPath, err)
			}

			entries = append(entries, types.FileEntry{
				Path:     canon.Path,
				PathKey:  canon.PathKey,
				Object:   hash,
				Size:     info.Size(),
				LangHint: langHints[strings.ToLower(filepath.Ext(canon.Path))],
				Mode:     uint32(info.Mode().Perm()),
				MTime:    info.ModTime().Unix(),
				TextHash: textHashOf(content),
			})
		}
		return nil
	}

	if err := walkDir(root); err != nil {
		return nil, err
	}
	return entries, nil
}

// textHashOf hashes content with CRLF normalized to LF, so the same
// logical text compares equal regardless of line-ending convention;
// Object (the CAS hash) always reflects the raw bytes.
func textHashOf(content []byte) string {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:])
}

func matchesInclude(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func matchesExclude(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func detectCollisions(entries []types.FileEntry) error {
	seen := make(map[string]string, len(entries))
	var collisions []string
	for _, e := range entries {
		if other, ok := seen[e.PathKey]; ok && other != e.Path {
			collisions = append(collisions, fmt.Sprintf("%s vs %s", other, e.Path))
		}
		seen[e.PathKey] = e.Path
	}
	if len(collisions) > 0 {
		return cberrors.New(cberrors.CodePathCollision,
			"case-insensitive path collision").WithDetail("collisions", collisions)
	}
	return nil
}

func serializeIndex(entries []types.FileEntry) ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create tmp in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write tmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: fsync tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}
