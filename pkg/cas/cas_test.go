package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	hash, err := s.PutBytes([]byte("hello world"))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("hello world"))
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)

	got, err := s.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestPutIsIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	h1, err := s.PutBytes([]byte("dup"))
	require.NoError(t, err)
	h2, err := s.PutBytes([]byte("dup"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.True(t, s.Has(h1))
}

func TestPutEmptyBytes(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	hash, err := s.PutBytes([]byte{})
	require.NoError(t, err)

	sum := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)
}

func TestPathOfShardsByHexPrefix(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	require.NoError(t, err)

	hash, err := s.PutBytes([]byte("x"))
	require.NoError(t, err)

	p, err := s.PathOf(hash)
	require.NoError(t, err)
	want := filepath.Join(root, "sha256", hash[0:2], hash[2:4], hash)
	assert.Equal(t, want, p)

	_, statErr := os.Stat(p)
	assert.NoError(t, statErr)
}

func TestGetDetectsCorruption(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	require.NoError(t, err)

	hash, err := s.PutBytes([]byte("original"))
	require.NoError(t, err)

	p, err := s.PathOf(hash)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte("tampered"), 0o644))

	_, err = s.Get(hash)
	assert.Error(t, err)
}

func TestHasUnknownHash(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.False(t, s.Has("deadbeef"))
}
