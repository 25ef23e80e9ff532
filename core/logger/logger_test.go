package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New(&Config{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New(&Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestForRegion(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := ForRegion(zap.New(core), "EU")
	log.Info("worker opened")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "EU", entries[0].ContextMap()["region"])
}
