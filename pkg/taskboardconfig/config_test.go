package taskboardconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrInitCreatesDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, err := LoadOrInit(home)
	require.NoError(t, err)

	require.Equal(t, DefaultServerURL, cfg.ServerURL)
	require.Equal(t, filepath.Join(home, ".local", "state", "taskboard", "taskboard.db"), cfg.Backend.SQLitePath)
	require.NotEmpty(t, cfg.Backend.JWTSecret)
	require.Equal(t, DefaultTokenTTL, cfg.Backend.TokenTTL)
	require.Equal(t, DefaultOutput, cfg.CLI.Output)
	require.Empty(t, cfg.CLI.Token)
	require.Equal(t, filepath.Join(home, ".config", "taskboard", "config.yaml"), ConfigPath(home))

	info, err := os.Stat(ConfigPath(home))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrInit(home)
	require.NoError(t, err)
	require.Equal(t, cfg.Backend.JWTSecret, again.Backend.JWTSecret)
}

func TestLoadOrInitMergesMissingFields(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := ConfigPath(home)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: http://seed:8080
backend:
  sqlite_path: /seed/taskboard.db
  rate_limit: 2.5
cli:
  output: json
  token: " abc.def.ghi "
`), 0o644))

	cfg, err := LoadOrInit(home)
	require.NoError(t, err)

	require.Equal(t, "http://seed:8080", cfg.ServerURL)
	require.Equal(t, "/seed/taskboard.db", cfg.Backend.SQLitePath)
	require.NotEmpty(t, cfg.Backend.JWTSecret)
	require.Equal(t, DefaultTokenTTL, cfg.Backend.TokenTTL)
	require.Equal(t, 2.5, cfg.Backend.RateLimit)
	require.Equal(t, "json", cfg.CLI.Output)
	require.Equal(t, "abc.def.ghi", cfg.CLI.Token)

	roundTrip, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg, roundTrip)
}

func TestLoadFileRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: [unterminated"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
}
