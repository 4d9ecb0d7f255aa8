package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataKey(t *testing.T) {
	assert.Equal(t, "fm:categories:v3:roots", DataKey("fm", "categories", "3", "roots"))
}

func TestNoopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Noop
	require.NoError(t, c.Set(ctx, "ns", "k", map[string]int{"a": 1}))

	var dst map[string]int
	hit, err := c.Get(ctx, "ns", "k", &dst)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, dst)
	assert.NoError(t, c.Invalidate(ctx, "ns"))
}
