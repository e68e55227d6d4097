package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/domain"
)

func sampleTool(method domain.Method) domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:         "post_orders",
		Method:       method,
		PathTemplate: "/stores/{store}/orders/:kind",
		Params: []domain.ToolParam{
			{Name: "store", Type: domain.TypeString, TypeLabel: "string", Source: domain.SourcePath, Required: true},
			{Name: "kind", Type: domain.TypeString, TypeLabel: "string", Source: domain.SourcePath, Required: true},
			{Name: "qty", Type: domain.TypeInteger, TypeLabel: "integer", Source: domain.SourceBody, Required: true},
			{Name: "note", Type: domain.TypeString, TypeLabel: "string", Source: domain.SourceBody},
			{Name: "dry_run", Type: domain.TypeBoolean, TypeLabel: "boolean", Source: domain.SourceQuery},
			{Name: "X-Trace", Type: domain.TypeString, TypeLabel: "string", Source: domain.SourceHeader},
		},
	}
}

func TestToolDefinition_BuildPath(t *testing.T) {
	tool := sampleTool(domain.MethodPost)

	path, err := tool.BuildPath(map[string]any{"store": "main st", "kind": "bulk"})
	require.NoError(t, err)
	assert.Equal(t, "/stores/main%20st/orders/bulk", path)

	_, err = tool.BuildPath(map[string]any{"store": "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnresolvedPlaceholder))
}

func TestToolDefinition_BuildPath_Occurrences(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     map[string]any
		want     string
	}{
		{"colon name is a prefix of another", "/users/:id/:idx", map[string]any{"id": "5", "idx": "9"}, "/users/5/9"},
		{"prefix name listed second", "/users/:idx/:id", map[string]any{"id": "5", "idx": "9"}, "/users/9/5"},
		{"brace name is a prefix of another", "/a/{id}/{idx}", map[string]any{"id": 1, "idx": 2}, "/a/1/2"},
		{"same name with different tokens", "/a/{id}/b/{id:int}", map[string]any{"id": 7}, "/a/7/b/7"},
		{"mixed forms", "/x/<int:n>/:m/{k...}", map[string]any{"n": 1, "m": "two", "k": "a/b"}, "/x/1/two/a%2Fb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := domain.ToolDefinition{Method: domain.MethodGet, PathTemplate: tt.template}
			got, err := tool.BuildPath(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := domain.ToolDefinition{Method: domain.MethodGet, PathTemplate: "/users/:id/:idx"}.BuildPath(map[string]any{"id": "5"})
	assert.ErrorIs(t, err, domain.ErrUnresolvedPlaceholder)
}

func TestToolDefinition_BuildBody(t *testing.T) {
	args := map[string]any{"store": "s", "kind": "k", "qty": 3, "dry_run": true}

	body := sampleTool(domain.MethodPost).BuildBody(args)
	assert.Equal(t, map[string]any{"qty": 3}, body, "unset optional body params are omitted")

	assert.Nil(t, sampleTool(domain.MethodGet).BuildBody(args))
	assert.Nil(t, sampleTool(domain.MethodPost).BuildBody(map[string]any{"store": "s"}))
}

func TestToolDefinition_RequestParts(t *testing.T) {
	tool := sampleTool(domain.MethodPost)
	args := map[string]any{"dry_run": true, "X-Trace": "abc"}

	assert.Equal(t, "true", tool.BuildQuery(args).Get("dry_run"))
	assert.Equal(t, "abc", tool.BuildHeaders(args).Get("X-Trace"))
	assert.Empty(t, tool.BuildForm(args))
	assert.Empty(t, tool.BuildCookies(args))
}

func TestToolDefinition_InputSchema(t *testing.T) {
	schema := sampleTool(domain.MethodPost).InputSchema()
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"store", "kind", "qty"}, schema.Required)
	assert.Equal(t, "integer", schema.Properties["qty"].Type)
	assert.Len(t, schema.Properties, 6)
}
