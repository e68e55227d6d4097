package domain

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ToolDefinition is a callable function compiled from one canonical
// endpoint. Its name is unique within a generated set and is a valid
// identifier in common host languages.
type ToolDefinition struct {
	Name         string      `json:"name" yaml:"name"`
	Description  string      `json:"description" yaml:"description"`
	Method       Method      `json:"method" yaml:"method"`
	PathTemplate string      `json:"path" yaml:"path"`
	Params       []ToolParam `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Category     string      `json:"category,omitempty" yaml:"category,omitempty"`
	Tags         []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	AuthRequired bool        `json:"auth_required" yaml:"auth_required"`
	BaseURL      string      `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// ToolParam is a tool input together with how it is packaged into the
// request.
type ToolParam struct {
	Name        string      `json:"name" yaml:"name"`
	Type        ParamType   `json:"type" yaml:"type"`
	TypeLabel   string      `json:"type_label" yaml:"type_label"`
	Source      ParamSource `json:"source" yaml:"source"`
	Required    bool        `json:"required" yaml:"required"`
	Default     any         `json:"default,omitempty" yaml:"default,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// JSONSchemaProps represents the properties of a JSON schema, used for tool
// input definitions.
type JSONSchemaProps struct {
	Type        string                     `json:"type"`
	Description string                     `json:"description,omitempty"`
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"`
	Required    []string                   `json:"required,omitempty"`
	Items       *JSONSchemaProps           `json:"items,omitempty"`
	Format      string                     `json:"format,omitempty"`
	Default     any                        `json:"default,omitempty"`
	Enum        []interface{}              `json:"enum,omitempty"`
}

// InputSchema describes the tool arguments as a JSON schema object.
func (t ToolDefinition) InputSchema() JSONSchemaProps {
	schema := JSONSchemaProps{Type: "object", Properties: make(map[string]JSONSchemaProps, len(t.Params))}
	for _, p := range t.Params {
		prop := JSONSchemaProps{Type: p.TypeLabel, Description: p.Description, Default: p.Default}
		switch p.Type {
		case TypeArray:
			prop.Items = &JSONSchemaProps{Type: "string"}
		case TypeFile:
			prop.Format = "binary"
		}
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// Param returns the named parameter.
func (t ToolDefinition) Param(name string) (ToolParam, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ToolParam{}, false
}

// BuildPath substitutes every placeholder of the path template with the
// URL-escaped argument of the same name.
func (t ToolDefinition) BuildPath(args map[string]any) (string, error) {
	return fillPlaceholders(t.PathTemplate, func(name string) (string, error) {
		v, ok := args[name]
		if !ok || v == nil {
			return "", fmt.Errorf("missing path parameter %q: %w", name, ErrUnresolvedPlaceholder)
		}
		return url.PathEscape(fmt.Sprint(v)), nil
	})
}

// BuildQuery returns the query-string arguments that were supplied.
func (t ToolDefinition) BuildQuery(args map[string]any) url.Values {
	q := url.Values{}
	for _, p := range t.Params {
		v, ok := args[p.Name]
		if p.Source != SourceQuery || !ok || v == nil {
			continue
		}
		if list, isList := v.([]any); isList {
			for _, item := range list {
				q.Add(p.Name, fmt.Sprint(item))
			}
			continue
		}
		q.Set(p.Name, fmt.Sprint(v))
	}
	return q
}

// BuildHeaders returns the header arguments that were supplied.
func (t ToolDefinition) BuildHeaders(args map[string]any) http.Header {
	h := http.Header{}
	for _, p := range t.Params {
		if v, ok := args[p.Name]; ok && v != nil && p.Source == SourceHeader {
			h.Set(p.Name, fmt.Sprint(v))
		}
	}
	return h
}

// BuildCookies returns the cookie arguments that were supplied.
func (t ToolDefinition) BuildCookies(args map[string]any) []*http.Cookie {
	var cookies []*http.Cookie
	for _, p := range t.Params {
		if v, ok := args[p.Name]; ok && v != nil && p.Source == SourceCookie {
			cookies = append(cookies, &http.Cookie{Name: p.Name, Value: fmt.Sprint(v)})
		}
	}
	return cookies
}

// BuildForm returns the form arguments that were supplied.
func (t ToolDefinition) BuildForm(args map[string]any) url.Values {
	f := url.Values{}
	for _, p := range t.Params {
		if v, ok := args[p.Name]; ok && v != nil && p.Source == SourceForm {
			f.Set(p.Name, fmt.Sprint(v))
		}
	}
	return f
}

// BuildBody packages the supplied body arguments. It returns nil for
// methods without a body and when no body argument is set; unset optional
// parameters are omitted rather than sent as null.
func (t ToolDefinition) BuildBody(args map[string]any) map[string]any {
	if !t.Method.HasBody() {
		return nil
	}
	var body map[string]any
	for _, p := range t.Params {
		v, ok := args[p.Name]
		if p.Source != SourceBody || !ok || v == nil {
			continue
		}
		if body == nil {
			body = make(map[string]any)
		}
		body[p.Name] = v
	}
	return body
}

// UniqueToolNames renames colliding tool names in order: the first keeps its
// name, later ones get _2, _3 and so on.
func UniqueToolNames(defs []ToolDefinition) []ToolDefinition {
	out := make([]ToolDefinition, len(defs))
	used := make(map[string]bool, len(defs))
	for i, d := range defs {
		name := d.Name
		for n := 2; used[name]; n++ {
			name = d.Name + "_" + strconv.Itoa(n)
		}
		used[name] = true
		d.Name = name
		out[i] = d
	}
	return out
}
