package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewDefaultsToErrorLevel(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestInitReplacesGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")

	require.NoError(t, Init(Config{Level: "debug", Encoding: "json", OutputPaths: []string{path}}))
	t.Cleanup(func() {
		_ = Init(DefaultConfig())
	})

	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
	assert.NoError(t, Sync())
}
