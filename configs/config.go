package configs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/i2y/apiforge/internal/adapter/outbound/github"
	"github.com/i2y/apiforge/internal/usecase"
)

const (
	envPrefix         = "apiforge"
	DefaultConfigPath = "configs/apiforge.yaml"
)

// Source is one configured place to discover API surface from.
type Source struct {
	URL      string            `yaml:"url"`
	Type     string            `yaml:"type,omitempty"`     // Kind override: spec, proto, code, document, html
	Language string            `yaml:"language,omitempty"` // Language override for code sources
	Format   string            `yaml:"format,omitempty"`   // Spec format pin: openapi, swagger, postman, ...
	Headers  map[string]string `yaml:"headers,omitempty"`
	BaseURL  string            `yaml:"base_url,omitempty"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	Sources     []interface{}     `yaml:"sources"`
	AuthHeaders map[string]string `yaml:"auth_headers"`
	Strict      *bool             `yaml:"strict"`
}

// Config holds the final application configuration, merged from file and environment variables.
// Fields are loaded from environment variables with the prefix "APIFORGE_", potentially overriding file settings.
type Config struct {
	ConfigFilePath string `envconfig:"CONFIG_FILE" default:"configs/apiforge.yaml"`

	// File-loaded fields
	Sources     []Source
	AuthHeaders map[string]string

	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	AdminAddr                string        `envconfig:"ADMIN_ADDR" default:":8081"`
	Transport                string        `envconfig:"TRANSPORT" default:"sse"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	SourceTimeout            time.Duration `envconfig:"SOURCE_TIMEOUT" default:"60s"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	MaxConcurrency           int           `envconfig:"MAX_CONCURRENCY" default:"8"`
	MaxFileSize              int64         `envconfig:"MAX_FILE_SIZE" default:"2097152"`
	FetchRate                float64       `envconfig:"FETCH_RATE" default:"5"`
	FetchBurst               int           `envconfig:"FETCH_BURST" default:"5"`
	Repository               string        `envconfig:"REPOSITORY" default:"memory"`
	BoltPath                 string        `envconfig:"BOLT_PATH" default:"apiforge.db"`
	DefaultBaseURL           string        `envconfig:"DEFAULT_BASE_URL"`
	Strict                   bool          `envconfig:"STRICT_SOURCES"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// SourceConfigs converts the configured sources for the discovery use case.
func (c *Config) SourceConfigs() []usecase.SourceConfig {
	out := make([]usecase.SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, usecase.SourceConfig{
			URL:      s.URL,
			Kind:     s.Type,
			Language: s.Language,
			Format:   s.Format,
			Headers:  s.Headers,
			BaseURL:  s.BaseURL,
		})
	}
	return out
}

// Load loads configuration first from environment variables (to get file path),
// then from the specified YAML file, and finally merges/overrides with environment variables again.
// A non-empty path replaces APIFORGE_CONFIG_FILE.
func Load(ctx context.Context, path string) (*Config, error) {
	var initialCfg Config
	if err := envconfig.Process(envPrefix, &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}
	if path != "" {
		initialCfg.ConfigFilePath = path
	}

	fileCfg := FileConfig{}
	if initialCfg.ConfigFilePath != "" {
		data, err := readConfigFile(ctx, initialCfg.ConfigFilePath)
		switch {
		case errors.Is(err, os.ErrNotExist) && initialCfg.ConfigFilePath == DefaultConfigPath:
			slog.Info("Default config file not found, using env vars only.", "path", DefaultConfigPath)
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
			}
		}
	} else {
		slog.Info("No config file path specified (APIFORGE_CONFIG_FILE), using defaults/env vars only.")
	}

	finalCfg := initialCfg
	finalCfg.AuthHeaders = fileCfg.AuthHeaders
	if fileCfg.Strict != nil {
		finalCfg.Strict = *fileCfg.Strict
	}
	finalCfg.Sources = make([]Source, 0, len(fileCfg.Sources))
	for _, entry := range fileCfg.Sources {
		src, ok := parseSource(entry)
		if !ok {
			slog.Warn("Ignoring invalid source entry", "source", entry)
			continue
		}
		finalCfg.Sources = append(finalCfg.Sources, src)
	}

	// Process environment variables AGAIN to allow overrides over file settings.
	if err := envconfig.Process(envPrefix, &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	if path != "" {
		finalCfg.ConfigFilePath = path
	}
	return &finalCfg, nil
}

func readConfigFile(ctx context.Context, path string) ([]byte, error) {
	if github.IsGitHubURL(path) {
		data, err := github.LoadGitHubConfig(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from GitHub '%s': %w", path, err)
		}
		slog.Info("Loaded configuration from GitHub.", "url", path)
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	slog.Info("Loaded configuration from file.", "path", path)
	return data, nil
}

// parseSource accepts the string and object forms of a source entry.
func parseSource(entry interface{}) (Source, bool) {
	switch v := entry.(type) {
	case string:
		return Source{URL: v}, v != ""
	case map[string]interface{}:
		src := Source{
			URL:      stringField(v, "url"),
			Type:     stringField(v, "type"),
			Language: stringField(v, "language"),
			Format:   stringField(v, "format"),
			BaseURL:  stringField(v, "base_url"),
		}
		if headers, ok := v["headers"].(map[string]interface{}); ok {
			src.Headers = make(map[string]string, len(headers))
			for k, val := range headers {
				src.Headers[k] = fmt.Sprint(val)
			}
		}
		return src, src.URL != ""
	default:
		return Source{}, false
	}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
