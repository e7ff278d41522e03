package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relief.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
  rate_per_second: 0
store:
  backend: dynamodb
  dynamodb:
    table: relief-prod
    endpoint: http://localhost:8000
allocation:
  timeout: 2s
  persist_cursor: true
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 0.0, cfg.Server.RatePerSec)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, BackendDynamoDB, cfg.Store.Backend)
	assert.Equal(t, "relief-prod", cfg.Store.DynamoDB.Table)
	assert.Equal(t, "inventory", cfg.Store.DynamoDB.Key)
	assert.Equal(t, 2*time.Second, cfg.Allocation.Timeout)
	assert.True(t, cfg.Allocation.PersistCursor)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "store:\n  path: from-file.json\n")
	t.Setenv("RELIEF_STORE_PATH", "/tmp/from-env.json")
	t.Setenv("RELIEF_ALLOCATION_PERSIST_CURSOR", "true")
	t.Setenv("RELIEF_SERVER_READ_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.json", cfg.Store.Path)
	assert.True(t, cfg.Allocation.PersistCursor)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 1000, cfg.Events.Retention)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "store:\n  backend: postgres\n"},
		{"file backend without path", "store:\n  path: \"\"\n"},
		{"non-positive timeout", "allocation:\n  timeout: 0s\n"},
		{"non-positive event retention", "events:\n  retention: 0\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
