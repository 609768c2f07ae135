// Package cas implements CodeBatch's content-addressed object store:
// a write-once blob store keyed by SHA-256, with idempotent,
// atomic puts via tmp-then-rename.
package cas

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cuemby/codebatch/pkg/cberrors"
	"github.com/cuemby/codebatch/pkg/metrics"
)

// Store is a content-addressable blob store rooted at a directory laid
// out as objects/sha256/<aa>/<bb>/<hex>.
type Store struct {
	root string
}

// Open returns a Store rooted at root, creating the directory if needed.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cas: create root %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

func isValidHex(h string) bool {
	if len(h) != 64 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}

// PathOf returns the on-disk path of the object with the given hex hash,
// whether or not it currently exists.
func (s *Store) PathOf(hash string) (string, error) {
	if !isValidHex(hash) {
		return "", fmt.Errorf("cas: invalid hash %q", hash)
	}
	return filepath.Join(s.root, "sha256", hash[0:2], hash[2:4], hash), nil
}

// Has reports whether an object with the given hash is stored.
func (s *Store) Has(hash string) bool {
	p, err := s.PathOf(hash)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Put streams r's bytes into the store. It is idempotent: if an object
// with the resulting hash already exists it is left untouched. Returns
// the hex-encoded SHA-256 of the bytes.
func (s *Store) Put(r io.Reader) (hash string, err error) {
	tmpDir := filepath.Join(s.root, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("cas: mkdir tmp: %w", err)
	}

	tmp, err := os.CreateTemp(tmpDir, "obj-*")
	if err != nil {
		return "", fmt.Errorf("cas: create tmp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	hasher := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(r, hasher)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("cas: stream: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("cas: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("cas: close tmp: %w", err)
	}

	h := hex.EncodeToString(hasher.Sum(nil))
	finalPath, err := s.PathOf(h)
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(finalPath); statErr == nil {
		metrics.ObjectsDedupedTotal.Inc()
		return h, nil
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("cas: mkdir object dir: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		// Another writer may have won the race; a dedup hit there is fine.
		if _, statErr := os.Stat(finalPath); statErr == nil {
			metrics.ObjectsDedupedTotal.Inc()
			return h, nil
		}
		return "", fmt.Errorf("cas: rename into place: %w", err)
	}

	info, statErr := os.Stat(finalPath)
	if statErr == nil {
		metrics.ObjectBytesWrittenTotal.Add(float64(info.Size()))
	}
	metrics.ObjectsWrittenTotal.Inc()
	return h, nil
}

// PutBytes is a convenience wrapper over Put for in-memory bytes.
func (s *Store) PutBytes(b []byte) (string, error) {
	return s.Put(bytes.NewReader(b))
}

// Get reads the full contents of the object with the given hash and
// verifies its hash matches, returning CAS_CORRUPT on mismatch.
func (s *Store) Get(hash string) ([]byte, error) {
	p, err := s.PathOf(hash)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("cas: read %q: %w", hash, err)
	}
	sum := sha256.Sum256(b)
	got := hex.EncodeToString(sum[:])
	if got != hash {
		return nil, cberrors.New(cberrors.CodeCASCorrupt,
			fmt.Sprintf("object %s has content hashing to %s", hash, got))
	}
	return b, nil
}

// OpenRead opens the object's bytes for streaming without a full read into
// memory. Caller must close the returned ReadCloser.
func (s *Store) OpenRead(hash string) (io.ReadCloser, error) {
	p, err := s.PathOf(hash)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("cas: open %q: %w", hash, err)
	}
	return f, nil
}
