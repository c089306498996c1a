package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "GIN_MODE", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "MODEL_PATH",
	"DATA_DIR", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LEXICAL_API_URL",
	"LEXICAL_API_KEY", "LEXICAL_MODEL", "LEXICAL_TIMEOUT", "RATE_LIMIT_PER_MIN",
	"BASELINE_CACHE_TTL", "BASELINE_RETENTION_DAYS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Empty(t, cfg.Model.Path)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, 365, cfg.Storage.BaselineRetentionDays)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	clearEnv(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryConfiguration, apperrors.ToAppError(err).Category)
}

func TestLoadFile_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9090"
  gin_mode: debug
  allowed_origins: ["https://dashboard.example"]
model:
  path: models/risk.json.zst
storage:
  data_dir: /var/lib/echo
  baseline_cache_ttl: 2m
  baseline_retention_days: 30
lexical:
  timeout: 15s
rate_limit:
  per_minute: 120
`)

	cfg, err := LoadFile(path, true)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.GinMode)
	assert.Equal(t, []string{"https://dashboard.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "models/risk.json.zst", cfg.Model.Path)
	assert.Equal(t, "/var/lib/echo", cfg.Storage.DataDir)
	assert.Equal(t, 2*time.Minute, cfg.Storage.BaselineCacheTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.BaselineRetention())
	assert.Equal(t, 15*time.Second, cfg.Lexical.Timeout)
	assert.Equal(t, 120, cfg.RateLimit.PerMinute)

	// untouched sections keep defaults
	assert.Equal(t, 20, cfg.RateLimit.AnalyzePerMinute)
	assert.Equal(t, int64(256<<10), cfg.Server.MaxBodyBytes)
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: \"9090\"\nredis:\n  addr: yaml:6379\n")

	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MODEL_PATH", "/models/risk.json")
	t.Setenv("LEXICAL_API_KEY", "secret")
	t.Setenv("LEXICAL_TIMEOUT", "45")
	t.Setenv("BASELINE_CACHE_TTL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_PER_MIN", "10")

	cfg, err := LoadFile(path, true)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "env:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "/models/risk.json", cfg.Model.Path)
	assert.Equal(t, "secret", cfg.Lexical.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Lexical.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Storage.BaselineCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.RateLimit.PerMinute)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "malformed yaml", yaml: "server: [port"},
		{name: "non-numeric port", yaml: "server:\n  port: http\n"},
		{name: "unknown gin mode", yaml: "server:\n  gin_mode: loud\n"},
		{name: "negative cache ttl", yaml: "storage:\n  baseline_cache_ttl: -1m\n"},
		{name: "negative retention", yaml: "storage:\n  baseline_retention_days: -1\n"},
		{name: "bad int env", env: map[string]string{"REDIS_DB": "one"}},
		{name: "bad duration env", env: map[string]string{"LEXICAL_TIMEOUT": "soon"}},
		{name: "negative rate env", env: map[string]string{"RATE_LIMIT_PER_MIN": "-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFile(writeConfig(t, tt.yaml), true)
			require.Error(t, err)
			assert.Equal(t, apperrors.CategoryConfiguration, apperrors.ToAppError(err).Category)
		})
	}
}

func TestValidate_EmptyPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = " "
	assert.Error(t, cfg.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
	assert.Empty(t, splitList(" , "))
}
