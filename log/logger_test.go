package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zapcore.DebugLevel, &buf)

	logger.Named("gateway").Debug("heartbeat sent", zap.Int64("sequence", 42))
	require.NoError(t, logger.Sync())

	line := buf.String()
	assert.Contains(t, line, `"level":"debug"`)
	assert.Contains(t, line, `"component":"gateway"`)
	assert.Contains(t, line, `"message":"heartbeat sent"`)
	assert.Contains(t, line, `"sequence":42`)
}

func TestNewConsolePrefixes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsole(zapcore.DebugLevel, &buf)

	logger.Info("ready")
	logger.Error("fatal close")
	logger.Debug("frame dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], SUCCESS))
	assert.True(t, strings.HasPrefix(lines[1], ERROR))
	assert.True(t, strings.HasPrefix(lines[2], INFO))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level.Level())

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	level.SetLevel(zapcore.WarnLevel)
	assert.False(t, level.Enabled(zapcore.InfoLevel))

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	logger := zap.NewExample()
	assert.Same(t, logger, OrNop(logger))
}
