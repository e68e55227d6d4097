package toolgen_test

import (
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/i2y/apiforge/internal/adapter/outbound/toolgen"
	"github.com/i2y/apiforge/internal/domain"
)

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func newGenerator() *toolgen.Generator {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return toolgen.NewGenerator(logger)
}

func TestToolName(t *testing.T) {
	tests := []struct {
		method domain.Method
		path   string
		want   string
	}{
		{domain.MethodGet, "/users", "get_users"},
		{domain.MethodGet, "/users/{id}", "get_id"},
		{domain.MethodPost, "/api/v1/orders/", "post_orders"},
		{domain.MethodGet, "/api/v1/@weird!!/{x}", "get_x"},
		{domain.MethodDelete, "/", "delete_api"},
		{domain.MethodGet, "", "get_api"},
		{domain.MethodGet, "/v2/!!!", "get_v2"},
		{domain.MethodPut, "/items/2fa-settings", "put_2fa_settings"},
		{domain.MethodPatch, "/Users.JSON", "patch_users_json"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method)+" "+tt.path, func(t *testing.T) {
			got := toolgen.ToolName(tt.method, tt.path)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, identifier, got)
		})
	}
}

func TestToolName_AlwaysIdentifier(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		method := rapid.SampledFrom(domain.Methods).Draw(t, "method")
		path := rapid.String().Draw(t, "path")
		name := toolgen.ToolName(method, path)
		if !identifier.MatchString(name) {
			t.Fatalf("ToolName(%q, %q) = %q is not an identifier", method, path, name)
		}
	})
}

func TestGenerator_Generate(t *testing.T) {
	g := newGenerator()

	ep := domain.Endpoint{
		Method:      domain.MethodPost,
		Path:        "/stores/{store}/orders",
		Description: "Create an order",
		Tags:        []string{"orders"},
		Parameters: domain.Parameters{
			{Name: "note", Type: domain.TypeString, Source: domain.SourceBody},
			{Name: "store", Type: domain.TypeString, Source: domain.SourcePath, Required: true},
			{Name: "price", Type: domain.TypeFloat, Source: domain.SourceBody, Required: true},
			{Name: "attachment", Type: domain.TypeFile, Source: domain.SourceForm},
		},
	}

	def, err := g.Generate(ep)
	require.NoError(t, err)

	assert.Equal(t, "post_orders", def.Name)
	assert.Equal(t, domain.MethodPost, def.Method)
	assert.Equal(t, "/stores/{store}/orders", def.PathTemplate)
	assert.Equal(t, "POST request to /stores/{store}/orders. Create an order", def.Description)
	assert.Equal(t, "orders", def.Category)

	var names, labels []string
	for _, p := range def.Params {
		names = append(names, p.Name)
		labels = append(labels, p.TypeLabel)
	}
	assert.Equal(t, []string{"store", "price", "note", "attachment"}, names)
	assert.Equal(t, []string{"string", "number", "string", "string"}, labels)
}

func TestGenerator_UnresolvedPlaceholder(t *testing.T) {
	g := newGenerator()

	_, err := g.Generate(domain.Endpoint{Method: domain.MethodGet, Path: "/users/{id}"})
	require.Error(t, err)

	var genErr *domain.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "id", genErr.Placeholder)
	assert.True(t, errors.Is(err, domain.ErrUnresolvedPlaceholder))

	// a same-named parameter from another source does not resolve it
	_, err = g.Generate(domain.Endpoint{
		Method:     domain.MethodGet,
		Path:       "/users/{id}",
		Parameters: domain.Parameters{{Name: "id", Source: domain.SourceQuery}},
	})
	assert.Error(t, err)
}

func TestGenerator_OrderingLaw(t *testing.T) {
	g := newGenerator()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		var ps domain.Parameters
		for i := 0; i < n; i++ {
			ps.Add(domain.Parameter{
				Name:     rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "name"),
				Type:     domain.TypeString,
				Source:   domain.SourceQuery,
				Required: rapid.Bool().Draw(t, "required"),
			})
		}
		def, err := g.Generate(domain.Endpoint{Method: domain.MethodGet, Path: "/things", Parameters: ps})
		if err != nil {
			t.Fatal(err)
		}

		var wantRequired, wantOptional []string
		for _, p := range ps {
			if p.Required {
				wantRequired = append(wantRequired, p.Name)
			} else {
				wantOptional = append(wantOptional, p.Name)
			}
		}
		want := append(wantRequired, wantOptional...)
		var got []string
		for _, p := range def.Params {
			got = append(got, p.Name)
		}
		if len(want) != len(got) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if want[i] != got[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	})
}

func TestGenerator_PathRoundTrip(t *testing.T) {
	g := newGenerator()
	ep := domain.Endpoint{Method: domain.MethodGet, Path: "/a/:first/{second}/<int:third>"}.BackfillPlaceholders()

	def, err := g.Generate(ep)
	require.NoError(t, err)

	path, err := def.BuildPath(map[string]any{"first": "x", "second": "y", "third": 3})
	require.NoError(t, err)
	assert.Equal(t, "/a/x/y/3", path)

	ep = domain.Endpoint{Method: domain.MethodGet, Path: "/users/:id/:idx"}.BackfillPlaceholders()
	def, err = g.Generate(ep)
	require.NoError(t, err)
	path, err = def.BuildPath(map[string]any{"id": "5", "idx": "9"})
	require.NoError(t, err)
	assert.Equal(t, "/users/5/9", path)

	ep = domain.Endpoint{Method: domain.MethodGet, Path: "/a/{id}/b/{id:int}"}.BackfillPlaceholders()
	def, err = g.Generate(ep)
	require.NoError(t, err)
	path, err = def.BuildPath(map[string]any{"id": 4})
	require.NoError(t, err)
	assert.Equal(t, "/a/4/b/4", path)
}
