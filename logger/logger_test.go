package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := NewLogger("info", path)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("Report written", zap.String("path", "percentiles.csv"), zap.Int("rows", 30))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Report written", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "percentiles.csv", entry["path"])
	assert.Equal(t, 30.0, entry["rows"])
}

func TestNewLoggerWithoutFile(t *testing.T) {
	l, err := NewLogger("warn", "")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.NoError(t, l.Close())
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		_, err := ParseLevel(level)
		assert.NoError(t, err, level)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)

	_, err = NewLogger("verbose", "")
	assert.Error(t, err)
}
