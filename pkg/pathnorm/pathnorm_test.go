package pathnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeBasic(t *testing.T) {
	r, err := Canonicalize(`src\Main.GO`)
	require.NoError(t, err)
	assert.Equal(t, "src/Main.GO", r.Path)
	assert.Equal(t, "src/main.go", r.PathKey)
}

func TestCanonicalizeStripsTrailingSlash(t *testing.T) {
	r, err := Canonicalize("a/b/")
	require.NoError(t, err)
	assert.Equal(t, "a/b", r.Path)
}

func TestCanonicalizeRejectsAbsolute(t *testing.T) {
	_, err := Canonicalize("/etc/passwd")
	assert.Error(t, err)
}

func TestCanonicalizeRejectsDotSegments(t *testing.T) {
	for _, raw := range []string{"../a", "a/../b", "a/./b", "."} {
		_, err := Canonicalize(raw)
		assert.Errorf(t, err, "expected rejection of %q", raw)
	}
}

func TestCanonicalizeRejectsEmptySegment(t *testing.T) {
	_, err := Canonicalize("a//b")
	assert.Error(t, err)
}

func TestCanonicalizeNFCLowercase(t *testing.T) {
	// "é" as combining sequence (e + combining acute) should normalize
	// to the same key as the precomposed form.
	composed, err := Canonicalize("café.txt")
	require.NoError(t, err)
	decomposed, err := Canonicalize("café.TXT")
	require.NoError(t, err)
	assert.Equal(t, composed.PathKey, decomposed.PathKey)
}
