// Package cli is the apiforge command line: discover and generate print
// what a set of sources exposes, serve runs the MCP server.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/i2y/apiforge/configs"
)

// Version is reported by the MCP server and the CLI.
const Version = "0.1.0"

// Execute runs the apiforge CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "apiforge",
		Short:         "Turn API descriptions, source code and docs into MCP tools",
		Long:          "apiforge discovers HTTP endpoints in specs, protobuf definitions, source code and documentation, and serves them as MCP tools.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (local path or github://owner/repo/path)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().Bool("strict", false, "Fail the run when any source fails")

	for _, sub := range []*cobra.Command{newDiscoverCmd(a), newGenerateCmd(a), newServeCmd(a)} {
		cmd.AddCommand(sub)
	}
	// Convert Cobra flag errors (like unknown flags) into usage errors that
	// also show the command's help text.
	for _, c := range append(cmd.Commands(), cmd) {
		c.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
			return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
		})
	}
	return cmd
}

// init loads configuration and applies the persistent flags on top of it.
func (a *app) init(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := configs.Load(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if lvl, _ := flags.GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if flags.Changed("strict") {
		cfg.Strict, _ = flags.GetBool("strict")
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.logOutput(cmd), &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}))
	slog.SetDefault(a.logger)
	return nil
}

// logOutput keeps stdout free for the stdio transport.
func (a *app) logOutput(cmd *cobra.Command) io.Writer {
	if cmd.Name() == "serve" {
		if a.transport(cmd) == transportStdio {
			f, err := os.OpenFile(stdioLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return io.Discard
			}
			return f
		}
	}
	return cmd.ErrOrStderr()
}
