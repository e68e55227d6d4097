package filesource_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/adapter/outbound/filesource"
	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestSourceFetcher_Accepts(t *testing.T) {
	f := filesource.NewSourceFetcher(0, testLogger())
	assert.True(t, f.Accepts(usecase.SourceConfig{URL: "./api.yaml"}))
	assert.True(t, f.Accepts(usecase.SourceConfig{URL: "/srv/app"}))
	assert.False(t, f.Accepts(usecase.SourceConfig{URL: "https://example.com/openapi.json"}))
	assert.False(t, f.Accepts(usecase.SourceConfig{URL: "github://o/r/api.yaml"}))
	assert.False(t, f.Accepts(usecase.SourceConfig{}))
}

func TestSourceFetcher_File(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "api.yaml", "openapi: 3.0.0\n")
	f := filesource.NewSourceFetcher(0, testLogger())

	srcs, err := f.Fetch(context.Background(), usecase.SourceConfig{URL: p, Format: "openapi", BaseURL: "http://api"})
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, p, srcs[0].Origin)
	assert.Equal(t, domain.KindSpec, srcs[0].Kind)
	assert.Equal(t, "openapi", srcs[0].FormatHint)
	assert.Equal(t, "http://api", srcs[0].BaseURL)
	assert.Equal(t, "openapi: 3.0.0\n", string(srcs[0].Data))
}

func TestSourceFetcher_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "routes.inc", "app.get('/x', h)")
	f := filesource.NewSourceFetcher(0, testLogger())

	_, err := f.Fetch(context.Background(), usecase.SourceConfig{URL: p})
	assert.Error(t, err, "unknown extension without a configured type")

	srcs, err := f.Fetch(context.Background(), usecase.SourceConfig{URL: p, Kind: "code", Language: "JavaScript"})
	require.NoError(t, err)
	assert.Equal(t, domain.KindCode, srcs[0].Kind)
	assert.Equal(t, "javascript", srcs[0].Language)
}

func TestSourceFetcher_Tree(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "main.go", "package main")
	write(t, dir, "docs/API.md", "# API")
	write(t, dir, "proto/svc.proto", "syntax = \"proto3\";")
	write(t, dir, "web/app.ts", "fetch('/api/x')")
	write(t, dir, "node_modules/lib/index.js", "skip")
	write(t, dir, ".git/config", "skip")
	write(t, dir, "vendor/x/y.go", "skip")
	write(t, dir, "logo.png", "skip")
	write(t, dir, "big.py", string(make([]byte, 64)))

	f := filesource.NewSourceFetcher(32, testLogger())
	srcs, err := f.Fetch(context.Background(), usecase.SourceConfig{URL: dir, Format: "openapi"})
	require.NoError(t, err)

	got := make(map[string]domain.Source)
	for _, s := range srcs {
		rel, err := filepath.Rel(dir, s.Origin)
		require.NoError(t, err)
		got[filepath.ToSlash(rel)] = s
		assert.Empty(t, s.FormatHint)
	}
	assert.Len(t, got, 4)
	assert.Equal(t, "go", got["main.go"].Language)
	assert.Equal(t, domain.KindDocument, got["docs/API.md"].Kind)
	assert.Equal(t, domain.KindProto, got["proto/svc.proto"].Kind)
	assert.Equal(t, "typescript", got["web/app.ts"].Language)
}

func TestSourceFetcher_Missing(t *testing.T) {
	f := filesource.NewSourceFetcher(0, testLogger())
	_, err := f.Fetch(context.Background(), usecase.SourceConfig{URL: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
