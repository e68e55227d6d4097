package memrepo_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/i2y/apiforge/internal/adapter/outbound/memrepo"
	"github.com/i2y/apiforge/internal/adapter/outbound/repotest"
	"github.com/i2y/apiforge/internal/usecase"
)

func newTestRepo(t *testing.T) usecase.ToolRepository {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return memrepo.NewInMemoryToolRepository(logger)
}

func TestInMemoryToolRepository(t *testing.T) {
	repotest.Run(t, newTestRepo)
}
