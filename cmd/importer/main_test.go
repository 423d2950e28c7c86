package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lichessBody = `[Event "Rated blitz game"]
[White "dan"]
[Black "eve"]
[Result "1-0"]
[UTCDate "2024.03.01"]
[UTCTime "18:30:05"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0

[Event "Rated blitz game"]
[White "eve"]
[Black "dan"]
[Result "1/2-1/2"]
[UTCDate "2024.03.02"]
[UTCTime "09:00:00"]

1. d4 d5 1/2-1/2
`

func writeConfig(t *testing.T, lichessURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`username: dan
lichess:
  url: %s
database:
  games: %s
  openings: %s
log:
  path: %s
`, lichessURL, filepath.Join(dir, "games.db"), filepath.Join(dir, "openings.db"), filepath.Join(dir, "importer.log"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, dir
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).RunContext(context.Background(), append([]string{"importer"}, args...))
	return out.String(), err
}

func TestFetchImportExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("since") == "" {
			fmt.Fprint(w, lichessBody)
		}
	}))
	defer srv.Close()
	cfg, dir := writeConfig(t, srv.URL)

	out, err := runApp(t, "--config", cfg, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "fetched 2 games")

	out, err = runApp(t, "--config", cfg, "import-games")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 games")

	out, err = runApp(t, "--config", cfg, "import-games")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 games")

	parquetPath := filepath.Join(dir, "stats.parquet")
	out, err = runApp(t, "--config", cfg, "export", parquetPath)
	require.NoError(t, err)
	assert.Contains(t, out, "rows to "+parquetPath)
	assert.FileExists(t, parquetPath)

	_, err = runApp(t, "--config", cfg, "export")
	assert.Error(t, err)
}

func TestFetchWithoutUser(t *testing.T) {
	cfg, _ := writeConfig(t, "http://127.0.0.1:1")
	require.NoError(t, os.WriteFile(cfg, bytes.Replace(mustRead(t, cfg), []byte("username: dan"), []byte("username: \"\""), 1), 0o644))

	_, err := runApp(t, "--config", cfg, "fetch")
	assert.ErrorContains(t, err, "--user")
}

func TestImportOpenings(t *testing.T) {
	cfg, dir := writeConfig(t, "http://127.0.0.1:1")
	books := filepath.Join(dir, "books")
	require.NoError(t, os.MkdirAll(filepath.Join(books, "italian"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(books, "italian", "01.json"), []byte(`[
	{"name": "Main", "variation": "1. e4 e5 2. Nf3 Nc6 3. Bc4", "type": "line",
	 "book": "italian", "chapter": "01", "paused": 0, "learned": true}
	]`), 0o644))

	out, err := runApp(t, "--config", cfg, "import-openings", books)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 lines")

	out, err = runApp(t, "--config", cfg, "import-openings", books)
	require.NoError(t, err)
	assert.Contains(t, out, "no new lines")
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}
