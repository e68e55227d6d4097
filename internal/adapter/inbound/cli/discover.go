package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/i2y/apiforge/internal/adapter/outbound/memrepo"
	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

// EndpointReport is what discover prints.
type EndpointReport struct {
	RunID     string            `json:"run_id" yaml:"run_id"`
	Endpoints []domain.Endpoint `json:"endpoints" yaml:"endpoints"`
	Auth      *domain.AuthInfo  `json:"auth,omitempty" yaml:"auth,omitempty"`
	Failures  []string          `json:"failures,omitempty" yaml:"failures,omitempty"`
	NoMatch   []string          `json:"no_match,omitempty" yaml:"no_match,omitempty"`
}

func newDiscoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [source...]",
		Short: "Print the merged endpoints found in the given sources",
		Long: "Fetch every source, extract endpoints and print the merged, deduplicated set. " +
			"Without arguments the sources of the config file are used.",
		Example: `  apiforge discover ./openapi.yaml ./server
  apiforge discover --type document --output json https://example.com/docs/api.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.sourcesFrom(cmd, args)
			if err != nil {
				return err
			}
			uc, err := a.discoverUseCase(sources, memrepo.NewInMemoryToolRepository(a.logger), nil)
			if err != nil {
				return err
			}
			outcome, run, err := uc.Extract(cmd.Context(), sources)
			if err != nil {
				return err
			}
			report := EndpointReport{
				RunID:     run.ID.String(),
				Endpoints: outcome.Endpoints,
				Auth:      outcome.Auth,
				NoMatch:   outcome.NoMatches,
			}
			for _, f := range outcome.Failures {
				report.Failures = append(report.Failures, f.Error())
			}
			format, _ := cmd.Flags().GetString("output")
			data, err := encode(report, format)
			if err != nil {
				return err
			}
			return a.write(cmd, data)
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func addSourceFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("type", "", "Source kind override for all arguments (spec, proto, protoset, code, document, html)")
	flags.String("language", "", "Language override for code sources")
	flags.String("format", "", "Spec format pin (openapi, swagger, postman, insomnia, har, graphql, raml, apiblueprint, custom)")
	flags.String("base-url", "", "Base URL to call the discovered API at")
	flags.StringToString("header", nil, "Header sent when fetching remote sources (repeatable, Name=Value)")
	flags.StringP("output", "o", "yaml", "Output format: yaml or json")
	flags.String("out", "", "Write to this file instead of stdout")
}

// sourcesFrom turns arguments and source flags into source configs, falling
// back to the configured sources.
func (a *app) sourcesFrom(cmd *cobra.Command, args []string) ([]usecase.SourceConfig, error) {
	if len(args) == 0 {
		if len(a.cfg.Sources) == 0 {
			return nil, newUsageError(fmt.Sprintf("no sources given and none configured\n\n%s", cmd.UsageString()))
		}
		return a.cfg.SourceConfigs(), nil
	}
	flags := cmd.Flags()
	kind, _ := flags.GetString("type")
	if kind != "" {
		if _, ok := domain.ParseSourceKind(kind); !ok {
			return nil, newUsageError(fmt.Sprintf("unknown source type %q\n\n%s", kind, cmd.UsageString()))
		}
	}
	lang, _ := flags.GetString("language")
	format, _ := flags.GetString("format")
	baseURL, _ := flags.GetString("base-url")
	headers, _ := flags.GetStringToString("header")

	out := make([]usecase.SourceConfig, 0, len(args))
	for _, arg := range args {
		out = append(out, usecase.SourceConfig{
			URL:      arg,
			Kind:     kind,
			Language: lang,
			Format:   format,
			Headers:  headers,
			BaseURL:  baseURL,
		})
	}
	return out, nil
}

func encode(v any, format string) ([]byte, error) {
	switch format {
	case "", "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, newUsageError(fmt.Sprintf("unknown output format %q (want yaml or json)", format))
}

// write sends data to --out or stdout.
func (a *app) write(cmd *cobra.Command, data []byte) error {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		_, err := io.Copy(cmd.OutOrStdout(), bytes.NewReader(data))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.logger.Info("Wrote output file.", slog.String("path", path), slog.Int("bytes", len(data)))
	return nil
}
