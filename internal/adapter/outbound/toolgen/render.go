package toolgen

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/i2y/apiforge/internal/domain"
)

// Manifest is the textual form of a generated tool set.
type Manifest struct {
	Version string                  `json:"version" yaml:"version"`
	Tools   []domain.ToolDefinition `json:"tools" yaml:"tools"`
}

// Render serializes defs as a "yaml" or "json" manifest.
func Render(defs []domain.ToolDefinition, format string) ([]byte, error) {
	m := Manifest{Version: "1", Tools: defs}
	switch format {
	case "", "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("failed to encode manifest as yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode manifest as yaml: %w", err)
		}
		return buf.Bytes(), nil
	case "json":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest as json: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("manifest format %q: %w", format, domain.ErrUnsupportedFormat)
}
