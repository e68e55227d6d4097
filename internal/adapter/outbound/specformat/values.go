package specformat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

// Helpers for walking decoded JSON/YAML trees. Decoded documents only ever
// contain map[string]any, []any and scalars; normalize takes care of the
// map[any]any that YAML produces for non-string keys.

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			t[k] = normalize(vv)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = normalize(vv)
		}
		return m
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	}
	return v
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// str returns the first of keys that holds a non-empty scalar.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case map[string]any, []any:
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "required":
			return true
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func first(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringList returns v as a list of strings; a scalar becomes a one element list.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// toBlob re-encodes v as a plain JSON object so schemas from typed decoders
// can travel as opaque maps.
func toBlob(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// ensurePath trims a URL down to its path and guarantees a leading slash.
func ensurePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.Index(p, "://"); i >= 0 {
		rest := p[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			p = rest[j:]
		} else {
			p = "/"
		}
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func newAuth(t domain.AuthType, params map[string]string) *domain.AuthInfo {
	if t == domain.AuthNone || t == "" {
		return nil
	}
	a := &domain.AuthInfo{Type: t, Parameters: params}
	switch t {
	case domain.AuthBearer, domain.AuthOAuth:
		a.Headers = map[string]string{"Authorization": "Bearer"}
	case domain.AuthBasic:
		a.Headers = map[string]string{"Authorization": "Basic"}
	case domain.AuthAPIKey:
		if params["in"] == "" || params["in"] == "header" {
			if name := params["name"]; name != "" {
				a.Headers = map[string]string{name: ""}
			}
		}
	}
	return a
}

// addDeclared adds p to the endpoint, forcing placeholder names onto the path.
func addDeclared(ep *domain.Endpoint, placeholders map[string]bool, p domain.Parameter) {
	if p.Name == "" {
		return
	}
	if placeholders[p.Name] {
		p.Source = domain.SourcePath
		p.Required = true
	}
	if p.Source == domain.SourceUnknown || p.Source == "" {
		p.Source = domain.SourceQuery
	}
	if p.Type == "" {
		p.Type = domain.TypeString
	}
	ep.Parameters.Add(p)
}

func placeholderSet(path string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range domain.PlaceholderNames(path) {
		set[name] = true
	}
	return set
}
