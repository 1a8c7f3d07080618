package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/segyhp/loan-ledger/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"INFO":    zap.InfoLevel,
		"warning": zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"":        zap.InfoLevel,
		"verbose": zap.InfoLevel,
	}

	for in, expected := range tests {
		assert.Equal(t, expected, ParseLevel(in), "level %q", in)
	}
}

func TestNew(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = New(config.LoggingConfig{Level: "error", Format: "json"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zap.WarnLevel))
}
