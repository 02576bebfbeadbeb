package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")

	closer, err := Init(Config{Level: "debug", Format: "json", File: logFile})
	require.NoError(t, err)

	Info().Str("applicant_id", "42").Msg("写入文件测试")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "写入文件测试")
	assert.Contains(t, string(data), `"applicant_id":"42"`)
}

func TestInitFallsBackToInfo(t *testing.T) {
	_, err := Init(Config{Level: "not-a-level"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestCtxWithoutLoggerReturnsGlobal(t *testing.T) {
	l := Ctx(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, &Logger, l)

	ctx := WithContext(context.Background())
	assert.NotNil(t, Ctx(ctx))
}
