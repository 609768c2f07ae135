package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinKeyUsesUnitSeparator(t *testing.T) {
	key := joinKey("v1-ignored", "snap1", "a.py")
	assert.Contains(t, string(key), unitSeparator)
}

func TestOutputsByKindKeyOrdering(t *testing.T) {
	k1 := outputsByKindKey("snap1", "b1", "lint", "diagnostic", "a.py")
	k2 := outputsByKindKey("snap1", "b1", "lint", "diagnostic", "b.py")
	assert.Less(t, string(k1), string(k2))
}

func TestFilesByPathKeyDeterministic(t *testing.T) {
	k1 := filesByPathKey("snap1", "a.py")
	k2 := filesByPathKey("snap1", "a.py")
	assert.Equal(t, k1, k2)
}
