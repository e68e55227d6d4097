package domain

import (
	"regexp"
	"sort"
	"strings"
)

// Placeholder is a variable segment of a path template.
type Placeholder struct {
	Name string
	// Raw is the token exactly as it appears in the path, e.g. "{id:int}".
	Raw string
	// Qualifier is the type or pattern attached to the token, if any.
	Qualifier string
}

// Type maps the placeholder qualifier to a parameter type.
func (p Placeholder) Type() ParamType {
	switch strings.ToLower(p.Qualifier) {
	case "":
		return TypeUnknown
	case "int", "long", "integer", "int32", "int64", "uint", "digits", `\d+`, "[0-9]+":
		return TypeInteger
	case "float", "double", "decimal", "number":
		return TypeFloat
	case "bool", "boolean":
		return TypeBoolean
	case "str", "string", "slug", "uuid", "alpha", "guid", "path":
		return TypeString
	}
	return TypeUnknown
}

var (
	bracePlaceholder = regexp.MustCompile(`\{([^{}]+)\}`)
	colonPlaceholder = regexp.MustCompile(`(^|/):([A-Za-z_][A-Za-z0-9_]*)\??`)
	anglePlaceholder = regexp.MustCompile(`<(?:([A-Za-z_][A-Za-z0-9_]*):)?([A-Za-z_][A-Za-z0-9_]*)>`)
	placeholderName  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*$`)
)

// placeholderSpan is one placeholder occurrence with its byte range.
type placeholderSpan struct {
	start, end int
	ph         Placeholder
}

// placeholderSpans returns every placeholder occurrence of path in order of
// appearance. Overlapping matches keep the one that starts first.
func placeholderSpans(path string) []placeholderSpan {
	var hits []placeholderSpan

	for _, m := range bracePlaceholder.FindAllStringSubmatchIndex(path, -1) {
		raw := path[m[0]:m[1]]
		inner := path[m[2]:m[3]]
		name, qual, _ := strings.Cut(inner, ":")
		name = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(name), "..."), "?")
		name = strings.TrimPrefix(name, "*")
		if name == "$" || !placeholderName.MatchString(name) {
			continue
		}
		hits = append(hits, placeholderSpan{m[0], m[1], Placeholder{Name: name, Raw: raw, Qualifier: strings.TrimSpace(qual)}})
	}
	for _, m := range colonPlaceholder.FindAllStringSubmatchIndex(path, -1) {
		start := m[4] - 1
		hits = append(hits, placeholderSpan{start, m[1], Placeholder{Name: path[m[4]:m[5]], Raw: path[start:m[1]]}})
	}
	for _, m := range anglePlaceholder.FindAllStringSubmatchIndex(path, -1) {
		ph := Placeholder{Name: path[m[4]:m[5]], Raw: path[m[0]:m[1]]}
		if m[2] >= 0 {
			ph.Qualifier = path[m[2]:m[3]]
		}
		hits = append(hits, placeholderSpan{m[0], m[1], ph})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	out := hits[:0]
	end := 0
	for _, h := range hits {
		if h.start < end {
			continue
		}
		out = append(out, h)
		end = h.end
	}
	return out
}

// PathPlaceholders returns the placeholders of path in order of appearance,
// each name once. Recognized forms are {id}, {id:pattern}, {rest...},
// {id?}, :id and <id> / <conv:id>.
func PathPlaceholders(path string) []Placeholder {
	spans := placeholderSpans(path)
	seen := make(map[string]bool, len(spans))
	out := make([]Placeholder, 0, len(spans))
	for _, h := range spans {
		if seen[h.ph.Name] {
			continue
		}
		seen[h.ph.Name] = true
		out = append(out, h.ph)
	}
	return out
}

// fillPlaceholders rewrites path in one pass, replacing each placeholder
// occurrence by value(name). An error from value stops the pass.
func fillPlaceholders(path string, value func(name string) (string, error)) (string, error) {
	var b strings.Builder
	last := 0
	for _, h := range placeholderSpans(path) {
		v, err := value(h.ph.Name)
		if err != nil {
			return "", err
		}
		b.WriteString(path[last:h.start])
		b.WriteString(v)
		last = h.end
	}
	b.WriteString(path[last:])
	return b.String(), nil
}

// PlaceholderNames returns just the names of PathPlaceholders(path).
func PlaceholderNames(path string) []string {
	phs := PathPlaceholders(path)
	names := make([]string, len(phs))
	for i, ph := range phs {
		names[i] = ph.Name
	}
	return names
}
