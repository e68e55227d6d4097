package boltrepo_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/adapter/outbound/boltrepo"
	"github.com/i2y/apiforge/internal/adapter/outbound/repotest"
	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func open(t *testing.T, path string) *boltrepo.ToolRepository {
	t.Helper()
	repo, err := boltrepo.Open(path, testLogger())
	require.NoError(t, err)
	return repo
}

func TestToolRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) usecase.ToolRepository {
		repo := open(t, filepath.Join(t.TempDir(), "tools.db"))
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestToolRepository_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tools.db")
	ctx := context.Background()

	repo := open(t, path)
	def := repotest.Tool("get_users", "List users")
	def.Params = append(def.Params, domain.ToolParam{
		Name: "limit", Type: domain.TypeInteger, TypeLabel: "integer", Source: domain.SourceQuery, Default: float64(10),
	})
	require.NoError(t, repo.Save(ctx, []domain.ToolDefinition{def}))
	require.NoError(t, repo.Close())

	repo = open(t, path)
	defer repo.Close()
	got, err := repo.FindToolByName(ctx, "get_users")
	require.NoError(t, err)
	assert.Equal(t, def, *got)
}
