package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(LoadOptions{UserAgent: "exif-extractor-mcp/test"})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.HTTP.Addr)
	assert.Equal(t, "exif-extractor-mcp/test", cfg.Fetch.UserAgent)
	assert.Equal(t, DefaultSession(), cfg.Defaults)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("EXIF_MCP_LOG_LEVEL", "debug")
	t.Setenv("EXIF_MCP_HTTP_ADDR", ":9000")
	t.Setenv("EXIF_MCP_DEFAULTS_TIMEOUT", "5")
	t.Setenv("EXIF_MCP_DEFAULTS_INCLUDE_LOCATION", "true")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 5, cfg.Defaults.Timeout)
	assert.True(t, cfg.Defaults.IncludeLocation)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Defaults.MaxFileSize)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: warn
defaults:
  max_file_size: 1024
  include_technical: false
`), 0o600))

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, int64(1024), cfg.Defaults.MaxFileSize)
	assert.False(t, cfg.Defaults.IncludeTechnical)
	assert.Equal(t, DefaultTimeoutSeconds, cfg.Defaults.Timeout)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exif-mcp.yaml"), []byte("http:\n  addr: \":7000\"\n"), 0o600))

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EXIF_MCP_DEFAULTS_TIMEOUT=12\n"), 0o600))
	// Register for cleanup so godotenv's os.Setenv does not leak.
	t.Setenv("EXIF_MCP_DEFAULTS_TIMEOUT", "")
	require.NoError(t, os.Unsetenv("EXIF_MCP_DEFAULTS_TIMEOUT"))

	cfg, err := Load(LoadOptions{DotEnv: true})
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Defaults.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yaml")})
		assert.Error(t, err)
	})

	t.Run("invalid defaults", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("EXIF_MCP_DEFAULTS_TIMEOUT", "0")
		_, err := Load(LoadOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
