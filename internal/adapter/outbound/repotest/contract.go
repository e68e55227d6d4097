// Package repotest holds the behaviour every usecase.ToolRepository
// implementation must show, as a reusable test suite.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

// Tool returns a small definition named name.
func Tool(name, description string) domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:         name,
		Description:  description,
		Method:       domain.MethodGet,
		PathTemplate: "/api/" + name + "/{id}",
		Params: []domain.ToolParam{
			{Name: "id", Type: domain.TypeInteger, TypeLabel: "integer", Source: domain.SourcePath, Required: true},
		},
		Tags:    []string{"test"},
		BaseURL: "http://localhost:8080",
	}
}

// Run exercises a fresh repository from newRepo for every case.
func Run(t *testing.T, newRepo func(t *testing.T) usecase.ToolRepository) {
	ctx := context.Background()
	tool1 := Tool("tool1", "T1")
	tool2 := Tool("tool2", "T2")

	t.Run("SaveAndList", func(t *testing.T) {
		tests := []struct {
			name     string
			in       []domain.ToolDefinition
			wantList []domain.ToolDefinition
		}{
			{name: "Save single tool", in: []domain.ToolDefinition{tool1}, wantList: []domain.ToolDefinition{tool1}},
			{name: "Save multiple tools, listed by name", in: []domain.ToolDefinition{tool2, tool1}, wantList: []domain.ToolDefinition{tool1, tool2}},
			{name: "Save empty list", in: []domain.ToolDefinition{}, wantList: []domain.ToolDefinition{}},
			{name: "Save with empty tool name (skipped)", in: []domain.ToolDefinition{{Name: ""}, tool1}, wantList: []domain.ToolDefinition{tool1}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.Save(ctx, tt.in))
				list, err := repo.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.wantList, list)
			})
		}
	})

	t.Run("FindByName", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Save(ctx, []domain.ToolDefinition{tool1, tool2}))

		got, err := repo.FindToolByName(ctx, "tool2")
		require.NoError(t, err)
		assert.Equal(t, &tool2, got)

		got, err = repo.FindToolByName(ctx, "tool3")
		assert.ErrorIs(t, err, usecase.ErrToolNotFound)
		assert.Nil(t, got)
	})

	t.Run("SaveReplacesSet", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Save(ctx, []domain.ToolDefinition{Tool("overwrite", "V1"), tool1}))
		require.NoError(t, repo.Save(ctx, []domain.ToolDefinition{Tool("overwrite", "V2")}))

		found, err := repo.FindToolByName(ctx, "overwrite")
		require.NoError(t, err)
		assert.Equal(t, "V2", found.Description)

		_, err = repo.FindToolByName(ctx, "tool1")
		assert.ErrorIs(t, err, usecase.ErrToolNotFound, "tools missing from the new set are dropped")

		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
