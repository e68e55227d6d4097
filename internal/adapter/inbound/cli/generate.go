package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/i2y/apiforge/internal/adapter/outbound/memrepo"
	"github.com/i2y/apiforge/internal/adapter/outbound/toolgen"
	"github.com/i2y/apiforge/internal/domain"
)

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [source...]",
		Short: "Print the tool manifest generated from the given sources",
		Long: "Run a full discovery over the sources and print the generated tool definitions " +
			"as a YAML or JSON manifest. Without arguments the sources of the config file are used.",
		Example: `  apiforge generate ./openapi.yaml
  apiforge generate -o json --out tools.json ./server ./docs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.sourcesFrom(cmd, args)
			if err != nil {
				return err
			}
			uc, err := a.discoverUseCase(sources, memrepo.NewInMemoryToolRepository(a.logger), nil)
			if err != nil {
				return err
			}
			report, err := uc.Execute(cmd.Context(), sources)
			if err != nil {
				return err
			}
			for _, genErr := range report.GenerationErrors {
				a.logger.Warn("Endpoint skipped", slog.Any("error", genErr))
			}
			format, _ := cmd.Flags().GetString("output")
			data, err := toolgen.Render(report.Tools, format)
			if errors.Is(err, domain.ErrUnsupportedFormat) {
				return newUsageError(fmt.Sprintf("unknown output format %q (want yaml or json)", format))
			}
			if err != nil {
				return err
			}
			return a.write(cmd, data)
		},
	}
	addSourceFlags(cmd)
	return cmd
}
