package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	l, err := Init("DEBUG")
	require.NoError(t, err)
	require.NotNil(t, l)

	assert.Same(t, l, InfoLogger)
	assert.Same(t, l, FatalLogger)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	assert.NotPanics(t, func() { Info("started %s", "ok") })
	assert.NotPanics(t, func() { Warn("careful %d", 1) })
}

func TestInitBadLevel(t *testing.T) {
	_, err := Init("loud")
	require.Error(t, err)
}

func TestSetServiceName(t *testing.T) {
	old := SetServiceName("maker")
	defer SetServiceName(old)

	assert.Equal(t, "maker", SetServiceName("maker"))
}
