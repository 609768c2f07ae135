package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/codebatch/pkg/types"
)

func TestRegistryRegisterLookup(t *testing.T) {
	r := NewRegistry()
	fn := func(ctx context.Context, config map[string]any, files []File, ectx Context) ([]types.OutputRecord, error) {
		return nil, nil
	}
	r.Register("parse", fn)

	got, ok := r.Lookup("parse")
	require.True(t, ok)
	assert.NotNil(t, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryTypes(t *testing.T) {
	r := NewRegistry()
	r.Register("parse", nil)
	r.Register("lint", nil)
	assert.ElementsMatch(t, []string{"parse", "lint"}, r.Types())
}
