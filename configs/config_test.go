package configs_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/configs"
	"github.com/i2y/apiforge/internal/usecase"
)

const sampleConfig = `sources:
  - ./api/openapi.yaml
  - url: https://example.com/docs/api.html
    type: html
    headers:
      X-Api-Key: secret
    base_url: https://api.example.com
  - url: grpc://localhost:50051
  - 42
  - type: spec
auth_headers:
  Authorization: Bearer token
strict: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apiforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	t.Setenv("APIFORGE_SOURCE_TIMEOUT", "15s")
	path := writeConfig(t, sampleConfig)

	cfg, err := configs.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFilePath)
	assert.Equal(t, []usecase.SourceConfig{
		{URL: "./api/openapi.yaml"},
		{URL: "https://example.com/docs/api.html", Kind: "html", Headers: map[string]string{"X-Api-Key": "secret"}, BaseURL: "https://api.example.com"},
		{URL: "grpc://localhost:50051"},
	}, cfg.SourceConfigs())
	assert.Equal(t, map[string]string{"Authorization": "Bearer token"}, cfg.AuthHeaders)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 15*time.Second, cfg.SourceTimeout)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.Repository)
	assert.Equal(t, 8, cfg.MaxConcurrency)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("APIFORGE_STRICT_SOURCES", "false")
	t.Setenv("APIFORGE_CONFIG_FILE", writeConfig(t, sampleConfig))
	t.Setenv("APIFORGE_REPOSITORY", "bolt")

	cfg, err := configs.Load(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, cfg.Strict)
	assert.Equal(t, "bolt", cfg.Repository)
	assert.Len(t, cfg.Sources, 3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := configs.Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := configs.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, configs.DefaultConfigPath, cfg.ConfigFilePath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := configs.Load(context.Background(), writeConfig(t, "sources: [\n"))
	assert.ErrorContains(t, err, "failed to unmarshal config file")
}

func TestParsedLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := configs.Config{LogLevel: in}
		assert.Equal(t, want, cfg.ParsedLogLevel(), in)
	}
}
