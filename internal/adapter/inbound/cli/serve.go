package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/i2y/apiforge/internal/adapter/inbound/mcphttp"
	"github.com/i2y/apiforge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/apiforge/internal/usecase"
)

const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"

	stdioLogPath = "/tmp/apiforge.log"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Discover the configured sources and serve them as MCP tools",
		Long: "Run an initial discovery over the configured sources, then serve the generated tools " +
			"over the chosen MCP transport. HTTP transports also start the admin API.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), a.transport(cmd))
		},
	}
	cmd.Flags().String("transport", "", "Transport mode: stdio, sse or streamable-http (default from APIFORGE_TRANSPORT)")
	return cmd
}

func (a *app) transport(cmd *cobra.Command) string {
	if t, _ := cmd.Flags().GetString("transport"); t != "" {
		return t
	}
	return a.cfg.Transport
}

func (a *app) serve(ctx context.Context, transport string) error {
	switch transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return newUsageError(fmt.Sprintf("invalid transport %q (want stdio, sse or streamable-http)", transport))
	}
	cfg, logger := a.cfg, a.logger
	logger.Info("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()), slog.String("transport", transport))

	shutdownOtel, err := initOtelProvider(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	repo, closeRepo, err := a.repository()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Error("Failed to close tool repository.", slog.Any("error", err))
		}
	}()

	mcpSrv := mcpGoServer.NewMCPServer("apiforge", Version, mcpGoServer.WithToolCapabilities(true))
	logger.Info("MCP server (mark3labs/mcp-go) initialized.")

	invoker := httpinvoker.New(a.httpClient(), httpinvoker.Options{
		DefaultBaseURL: cfg.DefaultBaseURL,
		AuthHeaders:    cfg.AuthHeaders,
	}, logger)
	invokeUC := usecase.NewInvokeToolUseCase(repo, invoker, logger)
	serveUC := usecase.NewServeToolsUseCase(repo, mcpSrv, invokeUC, logger)
	discoverUC, err := a.discoverUseCase(cfg.SourceConfigs(), repo, serveUC)
	if err != nil {
		return err
	}

	// A persistent repository may already hold the tools of an earlier run.
	if stored, err := serveUC.Execute(ctx); err != nil {
		logger.Warn("Failed to read stored tools.", slog.Any("error", err))
	} else if len(stored) > 0 {
		if err := serveUC.Publish(ctx, stored); err != nil {
			return err
		}
		logger.Info("Published stored tools.", slog.Int("tool_count", len(stored)))
	}

	logger.Info("Performing initial discovery...")
	switch _, err := discoverUC.ExecuteConfigured(ctx); {
	case errors.Is(err, usecase.ErrNoSourcesFound):
		logger.Info("No sources configured; waiting for POST /admin/discover.")
	case err != nil:
		logger.Error("Initial discovery failed. Server startup continuing, but tools may be missing.", slog.Any("error", err))
	default:
		logger.Info("Initial discovery completed successfully.")
	}

	if transport == transportStdio {
		logger.Info("Starting in STDIO mode")
		if err := mcpGoServer.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server error: %w", err)
		}
		return nil
	}

	type mcpHTTPServer interface {
		Start(addr string) error
		Shutdown(ctx context.Context) error
	}
	var mcpServer mcpHTTPServer
	if transport == transportSSE {
		mcpServer = mcpGoServer.NewSSEServer(mcpSrv, mcpGoServer.WithBaseURL("http://"+cfg.ListenAddr))
	} else {
		mcpServer = mcpGoServer.NewStreamableHTTPServer(mcpSrv)
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	adminMux := http.NewServeMux()
	mcphttp.NewHandlers(discoverUC, serveUC, mcphttp.NewMetrics("apiforge"), logger).RegisterAdminRoutes(adminMux)
	adminServer := &http.Server{Addr: cfg.AdminAddr, Handler: adminMux}
	go func() {
		logger.Info("Admin HTTP server starting.", slog.String("address", adminServer.Addr))
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin HTTP server failed to start.", slog.Any("error", err))
		}
	}()

	go func() {
		logger.Info("MCP server starting.", slog.String("transport", transport), slog.String("address", cfg.ListenAddr))
		if err := mcpServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("MCP server failed to start.", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin HTTP server graceful shutdown failed.", slog.Any("error", err))
	}
	if err := mcpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("MCP server graceful shutdown failed.", slog.Any("error", err))
	}
	logger.Info("Servers shut down gracefully.")
	return nil
}
