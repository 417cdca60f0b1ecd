package logger

import (
	"os"
	"path/filepath"
	"testing"

	"load_cell_report/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldLog(t *testing.T) {
	t.Cleanup(func() { SetLevel(INFO) })

	SetLevel(WARN)
	assert.False(t, shouldLog(DEBUG))
	assert.False(t, shouldLog(INFO))
	assert.True(t, shouldLog(WARN))
	assert.True(t, shouldLog(ERROR))

	SetLevel("bogus")
	assert.False(t, shouldLog(DEBUG))
	assert.True(t, shouldLog(INFO))
}

func TestInit_WritesLogFile(t *testing.T) {
	t.Cleanup(func() { SetLevel(INFO) })

	path := filepath.Join(t.TempDir(), "run.log")
	cfg := config.Default()
	cfg.Logging.LogFile = path
	cfg.Logging.LogLevel = DEBUG

	require.NoError(t, Init(cfg))
	Debugf("derived %d readings\n", 3)
	Warnf("skipped row %d\n", 7)
	assert.Equal(t, path, GetLogFileName())
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Session started")
	assert.Contains(t, content, "DEBUG: derived 3 readings")
	assert.Contains(t, content, "WARN: skipped row 7")
	assert.Contains(t, content, "Session ended")
	assert.Equal(t, "result.log", GetLogFileName())
}
