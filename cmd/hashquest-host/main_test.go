package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashquest/internal/config"
)

func hostConfig(t *testing.T, vars ...string) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	logFile := filepath.Join(dir, "host.log")
	cfg, err := config.LoadFrom(dir, append([]string{
		"HASHQUEST_DATA_DIR=" + dir,
		"HASHQUEST_SAVE_BACKEND=bolt",
		"HASHQUEST_LOG_FILE=" + logFile,
		"HASHQUEST_GRPC_PORT=0",
	}, vars...))
	require.NoError(t, err)
	cfg.APIPort = 0 // any free port
	return cfg, logFile
}

func TestRunFlushesLogOnStartupFailure(t *testing.T) {
	cfg, logFile := hostConfig(t, "HASHQUEST_HASH_METHOD=md4")

	err := run(context.Background(), cfg, false)
	require.Error(t, err)

	data, readErr := os.ReadFile(logFile)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "Failed to open game")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg, logFile := hostConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, run(ctx, cfg, true))

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Mining started")
	assert.Contains(t, string(data), "Server stopped")
}
