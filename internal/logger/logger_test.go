package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestLevelFromEnvPrefersPFVariable(t *testing.T) {
	t.Setenv("PF_LOG_LEVEL", "debug")
	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, "debug", levelFromEnv())

	t.Setenv("PF_LOG_LEVEL", "")
	assert.Equal(t, "error", levelFromEnv())
}
