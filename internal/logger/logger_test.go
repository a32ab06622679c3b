package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNewConfig(t *testing.T) {
	jsonCfg := newConfig("warn", "json")
	assert.Equal(t, "json", jsonCfg.Encoding)
	assert.Equal(t, "timestamp", jsonCfg.EncoderConfig.TimeKey)
	assert.Equal(t, []string{"stdout"}, jsonCfg.OutputPaths)
	assert.Equal(t, zapcore.WarnLevel, jsonCfg.Level.Level())

	consoleCfg := newConfig("debug", "console")
	assert.Equal(t, "console", consoleCfg.Encoding)
	assert.Equal(t, zapcore.DebugLevel, consoleCfg.Level.Level())
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("info", "json", "breakdown-records")
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
