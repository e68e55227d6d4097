package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// InvokeToolUseCase handles receiving a tool invocation request and executing it.
type InvokeToolUseCase struct {
	repository ToolRepository
	invoker    ToolInvoker
	logger     *slog.Logger
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase.
func NewInvokeToolUseCase(repo ToolRepository, invoker ToolInvoker, logger *slog.Logger) *InvokeToolUseCase {
	return &InvokeToolUseCase{
		repository: repo,
		invoker:    invoker,
		logger:     logger.With("usecase", "InvokeTool"),
	}
}

// Execute finds the tool, checks that required arguments are present and
// calls the upstream API through the ToolInvoker.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	log := uc.logger.With(slog.String("tool_name", toolName))
	log.Info("Executing tool invocation")

	tool, err := uc.repository.FindToolByName(ctx, toolName)
	if err != nil {
		log.Warn("Tool definition not found", slog.Any("error", err))
		return nil, fmt.Errorf("tool '%s' definition not found: %w", toolName, err)
	}

	for _, p := range tool.Params {
		if _, ok := args[p.Name]; p.Required && !ok {
			log.Warn("Missing required argument", slog.String("param", p.Name))
			return nil, fmt.Errorf("tool '%s': missing required argument %q", toolName, p.Name)
		}
	}

	log.Debug("Invoking upstream service", slog.String("method", string(tool.Method)), slog.String("path", tool.PathTemplate))
	result, err := uc.invoker.Invoke(ctx, *tool, args)
	if err != nil {
		log.Error("Failed to invoke upstream tool", slog.Any("error", err))
		return nil, fmt.Errorf("failed to invoke tool %s: %w", toolName, err)
	}

	log.Info("Tool invocation successful")
	return result, nil
}
