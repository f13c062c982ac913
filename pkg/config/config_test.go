package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2<<20, cfg.Analyzer.MaxInputBytes)
	assert.Equal(t, "zstd", cfg.History.Compression)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, core.LogLevelInfo, cfg.LogLevel())
}

func TestParse(t *testing.T) {
	t.Setenv("CG_TEST_TOKEN", "from-env")

	cfg := Default()
	err := Parse([]byte(`
analyzer:
  max_input_bytes: 1024
  default_language: Kotlin
history:
  path: /tmp/cg.db
  compression: gzip
server:
  address: 127.0.0.1:9000
  read_timeout: 5s
github:
  token: ${CG_TEST_TOKEN}
  rate_limit: 100
  attempts: -1
audit:
  enabled: true
  path: /tmp/cg-audit.log
log:
  level: debug
`), cfg)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1024, cfg.Analyzer.MaxInputBytes)
	assert.Equal(t, "Kotlin", cfg.Analyzer.DefaultLanguage)
	assert.Equal(t, "gzip", cfg.History.Compression)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, 100, cfg.GitHub.RateLimit)
	assert.Equal(t, -1, cfg.GitHub.Attempts)
	assert.Equal(t, 2000, cfg.GitLab.RateLimit)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "/tmp/cg-audit.log", cfg.Audit.Path)
	assert.Equal(t, 5*time.Second, cfg.Audit.FlushInterval)
	assert.Equal(t, core.LogLevelDebug, cfg.LogLevel())
}

func TestParse_UnknownKey(t *testing.T) {
	err := Parse([]byte("analyzer:\n  max_bytes: 10\n"), Default())
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse(nil, cfg))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"CODEGUARD_MAX_INPUT_BYTES":     "4096",
		"CODEGUARD_HISTORY_ENABLED":     "false",
		"CODEGUARD_HISTORY_COMPRESSION": "none",
		"CODEGUARD_LOG_LEVEL":           "warn",
		"GITHUB_TOKEN":                  "gh-token",
		"GITLAB_TOKEN":                  "gl-token",
		"CODEGUARD_GITLAB_TOKEN":        "gl-override",
		"CODEGUARD_GITLAB_ATTEMPTS":     "5",
		"CODEGUARD_AUDIT_ENABLED":       "true",
		"CODEGUARD_AUDIT_PATH":          "/var/log/cg.log",
	}))
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.Analyzer.MaxInputBytes)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "none", cfg.History.Compression)
	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, "gl-override", cfg.GitLab.Token)
	assert.Equal(t, 5, cfg.GitLab.Attempts)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "/var/log/cg.log", cfg.Audit.Path)
	assert.Equal(t, core.LogLevelWarn, cfg.LogLevel())
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"CODEGUARD_MAX_INPUT_BYTES": "lots",
		"CODEGUARD_METRICS_ENABLED": "maybe",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CODEGUARD_MAX_INPUT_BYTES")
	assert.Contains(t, err.Error(), "CODEGUARD_METRICS_ENABLED")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.History.Compression = "lz4"
	cfg.Log.Level = "loud"
	cfg.Server.Address = ""
	cfg.GitLab.BaseURL = "gitlab.internal"
	cfg.Audit.Enabled = true
	cfg.Audit.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "history.compression")
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "server.address")
	assert.Contains(t, err.Error(), "gitlab.base_url")
	assert.Contains(t, err.Error(), "audit.path")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codeguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: :7070\n"), 0o644))
	t.Setenv("CODEGUARD_DEFAULT_LANGUAGE", "Swift")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "Swift", cfg.Analyzer.DefaultLanguage)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsInvalidInput(err))
}
