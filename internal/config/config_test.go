package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Search.DebounceMs)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.ConsoleStyle)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  baseUrl: https://estimates.example.com
  orgId: org-42
search:
  debounceMs: 150
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://estimates.example.com", cfg.API.BaseURL)
	assert.Equal(t, "org-42", cfg.API.OrgID)
	assert.Equal(t, 150, cfg.Search.DebounceMs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields fall back to defaults.
	assert.Equal(t, "sqlite", cfg.Session.Store)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_TokenEnvExpansion(t *testing.T) {
	t.Setenv("BIDMATE_TEST_TOKEN", "secret-token")
	path := writeConfig(t, `
api:
  token: ${BIDMATE_TEST_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.API.Token)
}

func TestLoad_UnsetEnvVarLeftAlone(t *testing.T) {
	path := writeConfig(t, `
api:
  token: ${BIDMATE_DEFINITELY_UNSET_VAR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${BIDMATE_DEFINITELY_UNSET_VAR}", cfg.API.Token)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BIDMATE_API_URL", "https://override.example.com")
	t.Setenv("BIDMATE_ORG_ID", "org-env")
	t.Setenv("BIDMATE_LOG_LEVEL", "WARN")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", cfg.API.BaseURL)
	assert.Equal(t, "org-env", cfg.API.OrgID)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))

	cfg.Search.DebounceMs = -1
	cfg.Session.Store = "postgres"
	cfg.Logging.Level = "loud"
	cfg.Logging.ConsoleStyle = "neon"

	issues := Validate(&cfg)
	require.Len(t, issues, 4)
	assert.Equal(t, "search.debounceMs", issues[0].Path)
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BIDMATE_HOME", dir)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, dir, paths.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(dir, "sessions.db"), paths.Sessions)

	require.NoError(t, paths.EnsureDirs())
	assert.DirExists(t, paths.Logs)
}

func TestParseConfigPath(t *testing.T) {
	parts, err := ParseConfigPath("api.baseUrl")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "baseUrl"}, parts)

	_, err = ParseConfigPath("")
	assert.Error(t, err)

	_, err = ParseConfigPath("api..baseUrl")
	assert.Error(t, err)

	_, err = ParseConfigPath("__proto__.x")
	assert.Error(t, err)
}

func TestValueAtPathHelpers(t *testing.T) {
	raw := map[string]any{}

	SetValueAtPath(raw, []string{"api", "orgId"}, "org-1")
	val, ok := GetValueAtPath(raw, []string{"api", "orgId"})
	require.True(t, ok)
	assert.Equal(t, "org-1", val)

	assert.True(t, UnsetValueAtPath(raw, []string{"api", "orgId"}))
	_, ok = GetValueAtPath(raw, []string{"api", "orgId"})
	assert.False(t, ok)
	assert.False(t, UnsetValueAtPath(raw, []string{"api", "orgId"}))
}
