package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"prod", "dev", "test"} {
		l, err := New(env)
		require.NoError(t, err, env)
		assert.NotNil(t, l, env)
	}
}

func TestInstall(t *testing.T) {
	l := zap.NewNop()
	restore := Install(l)
	defer restore()
	assert.Same(t, l, zap.L())
}
