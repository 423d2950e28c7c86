package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://lichess.org", cfg.Lichess.URL)
	assert.Equal(t, "games.db", cfg.Database.Games)
	assert.Equal(t, "stockfish", cfg.Engine.Path)
	assert.Equal(t, 1, cfg.Engine.Threads)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "basic", cfg.Theme)
	assert.Empty(t, cfg.File())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
username: dan
lichess:
  token: abc
engine:
  path: /usr/bin/stockfish
  depth: 22
  hash: 256
redis:
  url: redis://localhost:6379/0
  ttl: 90m
theme: night
themes:
  - name: night
    squareDark: "#111111"
`)
	t.Setenv("CHESSREVIEW_ENGINE_THREADS", "4")
	t.Setenv("CHESSREVIEW_USERNAME", "someone")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File())
	assert.Equal(t, "someone", cfg.Username)
	assert.Equal(t, "abc", cfg.Lichess.Token)
	assert.Equal(t, Engine{Path: "/usr/bin/stockfish", Depth: 22, Threads: 4, Hash: 256}, cfg.Engine)
	assert.Equal(t, 90*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "night", cfg.Theme)

	var themes []struct {
		Name       string `mapstructure:"name"`
		SquareDark string `mapstructure:"squareDark"`
	}
	require.NoError(t, cfg.Decode("themes", &themes))
	require.Len(t, themes, 1)
	assert.Equal(t, "#111111", themes[0].SquareDark)

	var missing []string
	require.NoError(t, cfg.Decode("nothing", &missing))
	assert.Nil(t, missing)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "engine:\n  depth: -1\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
