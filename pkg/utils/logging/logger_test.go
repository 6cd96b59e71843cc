package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerIn_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := InitLoggerIn(dir, "test", "warn")
	require.NoError(t, err)
	logger.Debug("debug only in file")
	require.NoError(t, logger.Core().Sync())

	files, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug only in file", entry["msg"])
	assert.Contains(t, entry, "timestamp")
}

func TestInitLoggerIn_InvalidLevel(t *testing.T) {
	_, err := InitLoggerIn(t.TempDir(), "test", "loud")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
