package toolgen

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

// Generator compiles canonical endpoints into tool definitions. Generate is
// deterministic and keeps no state between calls.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{logger: logger.With("component", "tool_generator")}
}

// Generate builds the tool definition for ep. It fails with a
// *domain.GenerationError when a path placeholder has no path parameter.
func (g *Generator) Generate(ep domain.Endpoint) (domain.ToolDefinition, error) {
	for _, ph := range domain.PathPlaceholders(ep.Path) {
		p, ok := ep.Parameters.Get(ph.Name)
		if !ok || p.Source != domain.SourcePath {
			g.logger.Warn("Unresolved path placeholder",
				slog.String("method", string(ep.Method)),
				slog.String("path", ep.Path),
				slog.String("placeholder", ph.Name))
			return domain.ToolDefinition{}, &domain.GenerationError{Method: ep.Method, Path: ep.Path, Placeholder: ph.Name}
		}
	}

	def := domain.ToolDefinition{
		Name:         ToolName(ep.Method, ep.Path),
		Description:  describe(ep),
		Method:       ep.Method,
		PathTemplate: ep.Path,
		Params:       orderParams(ep.Parameters),
		Category:     category(ep),
		AuthRequired: ep.AuthRequired,
		BaseURL:      ep.BaseURL,
	}
	if len(ep.Tags) > 0 {
		def.Tags = append([]string(nil), ep.Tags...)
	}
	g.logger.Debug("Generated tool", slog.String("tool_name", def.Name), slog.Int("param_count", len(def.Params)))
	return def, nil
}

// orderParams puts required parameters first, keeping discovery order
// inside each group.
func orderParams(ps domain.Parameters) []domain.ToolParam {
	out := make([]domain.ToolParam, 0, len(ps))
	for _, required := range []bool{true, false} {
		for _, p := range ps {
			if p.Required != required {
				continue
			}
			out = append(out, domain.ToolParam{
				Name:        p.Name,
				Type:        p.Type,
				TypeLabel:   TypeLabel(p.Type),
				Source:      p.Source,
				Required:    p.Required,
				Default:     p.Default,
				Description: p.Description,
			})
		}
	}
	return out
}

// TypeLabel renders a parameter type as a JSON schema type name.
func TypeLabel(t domain.ParamType) string {
	switch t {
	case domain.TypeInteger:
		return "integer"
	case domain.TypeFloat:
		return "number"
	case domain.TypeBoolean:
		return "boolean"
	case domain.TypeArray:
		return "array"
	case domain.TypeObject:
		return "object"
	}
	return "string"
}

func describe(ep domain.Endpoint) string {
	head := fmt.Sprintf("%s request to %s", ep.Method, ep.Path)
	desc := strings.TrimSpace(ep.Description)
	if desc == "" {
		return head
	}
	return head + ". " + desc
}

func category(ep domain.Endpoint) string {
	if len(ep.Tags) > 0 {
		return ep.Tags[0]
	}
	for _, s := range strings.Split(ep.Path, "/") {
		if s != "" && len(domain.PathPlaceholders(s)) == 0 {
			return s
		}
	}
	return "general"
}
