package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(false)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitEnabled(t *testing.T) {
	shutdown, err := Init(true)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
