package toolgen

import (
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

// sanitizeName lowercases name and turns every run of characters outside
// [a-z0-9] into a single underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// ToolName derives the identifier for an endpoint: the method, then the last
// meaningful path segment, falling back to the first one and then to "api".
func ToolName(method domain.Method, path string) string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	base := ""
	if len(segments) > 0 {
		base = sanitizeName(segments[len(segments)-1])
		if base == "" {
			base = sanitizeName(segments[0])
		}
	}
	if base == "" {
		base = "api"
	}

	name := strings.ToLower(string(method)) + "_" + base
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	name = strings.Trim(name, "_")
	if name == "" {
		name = "api"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "endpoint_" + name
	}
	return name
}
