package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, "1h", config.Tasks.Retention)
	assert.Equal(t, 3, config.Tasks.BatchSize)
	assert.Equal(t, 2, config.Tasks.RatePerSecond)
	assert.Equal(t, 4096, config.Claude.MaxTokens)
	assert.Equal(t, 768, config.Gemini.EmbedDimension)
	assert.Equal(t, "0 * * * *", config.Maintenance.Schedule)
	require.NoError(t, config.Validate())
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vendere.toml")
	content := `
environment = "production"

[server]
port = 9090

[tasks]
retention = "30m"
batch_size = 5

[extraction]
tool_path = "/opt/tools/frames"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "30m", config.Tasks.Retention)
	assert.Equal(t, 5, config.Tasks.BatchSize)
	assert.Equal(t, "/opt/tools/frames", config.Extraction.ToolPath)
	// Untouched sections keep their defaults
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 2, config.Tasks.RatePerSecond)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")
	require.NoError(t, os.WriteFile(base, []byte("[server]\nport = 7000\n"), 0644))
	require.NoError(t, os.WriteFile(local, []byte("[server]\nport = 7001\n"), 0644))

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)
	assert.Equal(t, 7001, config.Server.Port)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VENDERE_PORT", "8200")
	t.Setenv("VENDERE_LOG_LEVEL", "debug")
	t.Setenv("VENDERE_EXTRACTION_TOOL", "/usr/local/bin/extract")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8200, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "/usr/local/bin/extract", config.Extraction.ToolPath)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	ApplyFlagOverrides(config, 9999, "0.0.0.0")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave the config alone
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"zero batch size", func(c *Config) { c.Tasks.BatchSize = 0 }, "batch_size must be positive"},
		{"bad retention", func(c *Config) { c.Tasks.Retention = "soon" }, "invalid tasks.retention"},
		{"bad query timeout", func(c *Config) { c.Storage.QueryTimeout = "fast" }, "invalid storage.query_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, time.Hour, config.TaskRetention())
	assert.Equal(t, 8*time.Second, config.QueryTimeout())

	config.Tasks.Retention = "45m"
	config.Storage.QueryTimeout = "2s"
	assert.Equal(t, 45*time.Minute, config.TaskRetention())
	assert.Equal(t, 2*time.Second, config.QueryTimeout())

	// Unparseable values fall back to safe defaults
	config.Tasks.Retention = "bogus"
	config.Storage.QueryTimeout = "bogus"
	assert.Equal(t, time.Hour, config.TaskRetention())
	assert.Equal(t, 8*time.Second, config.QueryTimeout())
}

func TestResolveAPIKeyPriority(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	ctx := context.Background()

	_, err := ResolveAPIKey(ctx, nil, "anthropic_api_key", "")
	require.Error(t, err)

	key, err := ResolveAPIKey(ctx, nil, "anthropic_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	key, err = ResolveAPIKey(ctx, nil, "anthropic_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestIDPrefixes(t *testing.T) {
	assert.Contains(t, NewTaskID(), "task_")
	assert.Contains(t, NewKeywordID(), "kw_")
	assert.Contains(t, NewVariantID(), "var_")
	assert.Contains(t, NewMediaID(), "media_")
	assert.Contains(t, NewFrameID(), "frame_")
	assert.Contains(t, NewMappingID(), "map_")
	assert.NotEqual(t, NewTaskID(), NewTaskID())
}
