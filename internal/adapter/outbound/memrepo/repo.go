package memrepo

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

// InMemoryToolRepository provides an in-memory implementation of the ToolRepository.
// NOTE: This implementation is not persistent and data will be lost on restart.
type InMemoryToolRepository struct {
	mu     sync.RWMutex
	tools  map[string]domain.ToolDefinition // Map tool name to definition
	logger *slog.Logger
}

// NewInMemoryToolRepository creates a new in-memory repository.
func NewInMemoryToolRepository(logger *slog.Logger) *InMemoryToolRepository {
	return &InMemoryToolRepository{
		tools:  make(map[string]domain.ToolDefinition),
		logger: logger.With("component", "mem_repo"),
	}
}

// Save replaces the stored tool set with defs. Definitions without a name
// are skipped.
func (r *InMemoryToolRepository) Save(ctx context.Context, defs []domain.ToolDefinition) error {
	next := make(map[string]domain.ToolDefinition, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			r.logger.Warn("Skipping tool with empty name during save", slog.Int("index", i))
			continue
		}
		next[def.Name] = def
	}

	r.mu.Lock()
	r.tools = next
	r.mu.Unlock()

	r.logger.Info("Saved tools", slog.Int("count", len(next)))
	return nil
}

// List returns all tools currently stored in memory, ordered by name.
func (r *InMemoryToolRepository) List(ctx context.Context) ([]domain.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	r.logger.Debug("Listed tools from repository", slog.Int("count", len(list)))
	return list, nil
}

// FindToolByName retrieves a tool definition by its name.
func (r *InMemoryToolRepository) FindToolByName(ctx context.Context, name string) (*domain.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	if !ok {
		r.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	r.logger.Debug("Found tool definition", slog.String("tool_name", name))
	return &def, nil
}
