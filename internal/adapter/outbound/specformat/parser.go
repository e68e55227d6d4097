// Package specformat turns machine-readable API descriptions (OpenAPI 3,
// Swagger 2, Postman and Insomnia exports, ad-hoc endpoint lists) into
// canonical endpoint records.
package specformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/i2y/apiforge/internal/domain"
)

// Format names a supported input format.
type Format string

const (
	FormatOpenAPI3 Format = "openapi"
	FormatSwagger2 Format = "swagger"
	FormatPostman  Format = "postman"
	FormatInsomnia Format = "insomnia"
	FormatCustom   Format = "custom"
	FormatGeneric  Format = "generic"
)

// ParseFormat resolves a user supplied format name. An empty name is valid
// and means "detect".
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "openapi", "openapi3", "oas", "oas3":
		return FormatOpenAPI3, true
	case "swagger", "swagger2", "openapi2":
		return FormatSwagger2, true
	case "postman":
		return FormatPostman, true
	case "insomnia":
		return FormatInsomnia, true
	case "custom":
		return FormatCustom, true
	case "generic":
		return FormatGeneric, true
	}
	return "", false
}

// Document is everything one specification yields.
type Document struct {
	Format    Format
	Endpoints []domain.Endpoint
	Auth      *domain.AuthInfo
	Schemas   map[string]any
	BaseURL   string
}

var errNotStructured = errors.New("document is neither an object nor a list")

// Parse decodes raw and converts it with the parser for hint, or for the
// detected format when hint is empty.
func Parse(raw []byte, hint Format) (Document, error) {
	return parse(slog.Default(), "", raw, hint)
}

func parse(log *slog.Logger, origin string, raw []byte, hint Format) (Document, error) {
	tree, err := decode(raw)
	if err != nil {
		return Document{}, &domain.ParseError{Source: origin, Format: string(hint), Cause: err}
	}

	format := hint
	if format == "" {
		format = Detect(tree)
	}
	log.Debug("Parsing specification.", slog.String("source", origin), slog.String("format", string(format)))

	var doc Document
	switch format {
	case FormatOpenAPI3:
		doc, err = parseOpenAPI3(log, origin, raw)
	case FormatSwagger2:
		doc, err = parseSwagger2(tree)
	case FormatPostman:
		doc, err = parsePostman(tree)
	case FormatInsomnia:
		doc, err = parseInsomnia(tree)
	case FormatCustom:
		doc, err = parseCustom(tree)
	case FormatGeneric:
		doc = parseGeneric(tree)
	default:
		err = fmt.Errorf("format %q: %w", format, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return Document{}, &domain.ParseError{Source: origin, Format: string(format), Cause: err}
	}
	doc.Format = format
	return doc, nil
}

// decode reads JSON when the input looks like JSON and YAML otherwise.
func decode(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	var tree any
	if trimmed[0] == '{' || trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &tree); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	tree = normalize(tree)
	switch tree.(type) {
	case map[string]any, []any:
		return tree, nil
	}
	return nil, errNotStructured
}

// Detect picks a format from the structural signature of a decoded document.
func Detect(tree any) Format {
	if m, ok := asMap(tree); ok {
		if v := str(m, "openapi"); strings.HasPrefix(v, "3.") || v == "3" {
			return FormatOpenAPI3
		}
		if v := str(m, "swagger"); v == "2.0" || v == "2" {
			return FormatSwagger2
		}
		if info, ok := asMap(m["info"]); ok && str(info, "schema") != "" {
			if _, ok := asList(m["item"]); ok {
				return FormatPostman
			}
		}
		if res, ok := asList(m["resources"]); ok {
			for _, r := range res {
				if rm, ok := asMap(r); ok && str(rm, "_type") != "" {
					return FormatInsomnia
				}
			}
		}
		if _, ok := first(m, "endpoints", "apis", "routes"); ok {
			return FormatCustom
		}
		return FormatGeneric
	}
	if list, ok := asList(tree); ok && len(list) > 0 {
		if item, ok := asMap(list[0]); ok {
			if _, ok := first(item, "path", "url", "method"); ok {
				return FormatCustom
			}
		}
	}
	return FormatGeneric
}
