package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/i2y/apiforge/internal/domain"
)

// ServeToolsUseCase lists stored tools and keeps the MCP server's tool set in
// step with the latest discovery run.
type ServeToolsUseCase struct {
	repository ToolRepository
	server     MCPServerAdapter
	invoke     *InvokeToolUseCase
	logger     *slog.Logger

	mu         sync.Mutex
	registered []string
}

// NewServeToolsUseCase creates a new ServeToolsUseCase. server and invoke
// may be nil when tools are only listed.
func NewServeToolsUseCase(repository ToolRepository, server MCPServerAdapter, invoke *InvokeToolUseCase, logger *slog.Logger) *ServeToolsUseCase {
	return &ServeToolsUseCase{
		repository: repository,
		server:     server,
		invoke:     invoke,
		logger:     logger.With("usecase", "ServeTools"),
	}
}

// Execute retrieves all tools currently stored in the repository.
func (uc *ServeToolsUseCase) Execute(ctx context.Context) ([]domain.ToolDefinition, error) {
	uc.logger.Info("Listing tools")
	tools, err := uc.repository.List(ctx)
	if err != nil {
		uc.logger.Error("Failed to list tools from repository", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list tools from repository: %w", err)
	}
	uc.logger.Info("Successfully listed tools", slog.Int("count", len(tools)))
	return tools, nil
}

// Publish replaces the tools registered on the MCP server with defs.
func (uc *ServeToolsUseCase) Publish(ctx context.Context, defs []domain.ToolDefinition) error {
	if uc.server == nil {
		return nil
	}
	tools := make([]mcp.Tool, 0, len(defs))
	for _, def := range defs {
		tool, err := ToMCPTool(def)
		if err != nil {
			return fmt.Errorf("failed to convert tool %s: %w", def.Name, err)
		}
		tools = append(tools, tool)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if len(uc.registered) > 0 {
		uc.server.DeleteTools(uc.registered...)
	}
	uc.registered = uc.registered[:0]
	for i, tool := range tools {
		uc.server.AddTool(tool, uc.handlerFor(defs[i].Name))
		uc.registered = append(uc.registered, tool.Name)
	}
	uc.logger.Info("Registered tools on MCP server", slog.Int("count", len(tools)))
	return nil
}

func (uc *ServeToolsUseCase) handlerFor(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if uc.invoke == nil {
			return mcp.NewToolResultError("tool invocation is not configured"), nil
		}
		result, err := uc.invoke.Execute(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultErrorFromErr("tool invocation failed", err), nil
		}
		if s, ok := result.(string); ok {
			return mcp.NewToolResultText(s), nil
		}
		out, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to encode result", err), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// ToMCPTool converts a tool definition into its MCP form.
func ToMCPTool(def domain.ToolDefinition) (mcp.Tool, error) {
	schema, err := json.Marshal(def.InputSchema())
	if err != nil {
		return mcp.Tool{}, err
	}
	return mcp.NewToolWithRawSchema(def.Name, def.Description, schema), nil
}
