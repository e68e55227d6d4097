package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// Standard errors returned by use cases and adapters.
var (
	ErrToolNotFound   = errors.New("tool not found")
	ErrSourceFailed   = errors.New("source failed")
	ErrNoFetcher      = errors.New("no fetcher accepts source")
	ErrNoSourcesFound = errors.New("no sources configured")
)

// --- Source acquisition ---

// SourceConfig describes one place to discover API surface from.
type SourceConfig struct {
	URL string
	// Kind overrides kind inference when set ("spec", "code", "document", ...).
	Kind string
	// Language overrides language inference for code sources.
	Language string
	// Format pins the spec format ("openapi", "postman", ...).
	Format  string
	Headers map[string]string
	BaseURL string
}

// Classify decides kind and language for a file fetched for c. Configured
// values win over what the file name suggests; ok is false when neither
// yields a kind.
func (c SourceConfig) Classify(name string) (kind domain.SourceKind, lang string, ok bool) {
	kind, lang, ok = domain.KindForName(name)
	if c.Kind != "" {
		k, valid := domain.ParseSourceKind(c.Kind)
		if !valid {
			return "", "", false
		}
		kind, ok = k, true
	}
	if c.Language != "" {
		lang = strings.ToLower(c.Language)
	}
	return kind, lang, ok
}

// NewSource builds the source handed to extractors for data read from
// origin on behalf of c.
func (c SourceConfig) NewSource(origin string, kind domain.SourceKind, lang string, data []byte) domain.Source {
	return domain.Source{
		Origin:     origin,
		Kind:       kind,
		Language:   lang,
		FormatHint: c.Format,
		BaseURL:    c.BaseURL,
		Data:       data,
	}
}

// SourceFetcher turns a configured source into raw sources. A directory or a
// reflection endpoint may yield more than one.
type SourceFetcher interface {
	Accepts(cfg SourceConfig) bool
	Fetch(ctx context.Context, cfg SourceConfig) ([]domain.Source, error)
}

// --- Extraction ---

// Extractor finds endpoints in one source. Implementations never share
// mutable state between calls; anything run-scoped lives in the RunContext.
type Extractor interface {
	Name() string
	Tier() domain.Tier
	Accepts(src domain.Source) bool
	Extract(ctx context.Context, run *RunContext, src domain.Source) domain.ExtractionResult
}

// --- Generation and storage ---

// ToolGenerator compiles one canonical endpoint into a tool definition.
type ToolGenerator interface {
	Generate(ep domain.Endpoint) (domain.ToolDefinition, error)
}

// ToolRepository stores the generated tool set.
type ToolRepository interface {
	// Save replaces the stored set with defs.
	Save(ctx context.Context, defs []domain.ToolDefinition) error

	// List returns every stored tool ordered by name.
	List(ctx context.Context) ([]domain.ToolDefinition, error)

	// FindToolByName returns ErrToolNotFound when name is unknown.
	FindToolByName(ctx context.Context, name string) (*domain.ToolDefinition, error)
}

// --- MCP Server Abstraction ---

// MCPServerAdapter is the part of the MCP server the use cases drive.
// *server.MCPServer from mcp-go satisfies it.
type MCPServerAdapter interface {
	AddTool(tool mcp.Tool, handlerFunc mcpGoServer.ToolHandlerFunc)
	DeleteTools(names ...string)
}

// --- Tool Invocation ---

// ToolInvoker executes the upstream call behind a tool.
type ToolInvoker interface {
	Invoke(ctx context.Context, tool domain.ToolDefinition, args map[string]interface{}) (interface{}, error)
}
