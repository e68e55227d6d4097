// Package docs finds endpoints mentioned in prose documentation: markdown,
// plain text and HTML pages.
package docs

import (
	"regexp"
	"sort"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

const methodWord = `(GET|POST|PUT|DELETE|PATCH)`

// layers are tried in order; a later layer never re-reports a method token
// or path claimed by an earlier one.
var layers = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^#+\s*` + methodWord + `\s+(\S+)`),
	regexp.MustCompile("(?i)`" + methodWord + "\\s+([^`\\s]+)`"),
	regexp.MustCompile("(?i)\\b" + methodWord + "\\s+`([^`\\s]+)`"),
	regexp.MustCompile(`(?i)\b` + methodWord + `:\s*(/\S+)`),
	regexp.MustCompile(`(?i)\bcurl\b[^\n]*?-X\s*` + methodWord + `\s+["']?([^"'\s]+)`),
	regexp.MustCompile(`(?i)\b` + methodWord + `\s+(https?://\S+)`),
	regexp.MustCompile(`(?im)^\|\s*` + methodWord + "\\s*\\|\\s*`?(/[^|`\\s]+)`?"),
	regexp.MustCompile(`(?i)\b` + methodWord + `\s+(/\S+)`),
	regexp.MustCompile(`(?im)^[ \t]*(?:[-*][ \t]+)?(?:\*\*)?(?:endpoint|route|path)(?:\*\*)?[ \t]*:[ \t]*(?:` + methodWord + `[ \t]+)?` + "`?" + `([^\s` + "`" + `]+)`),
}

type match struct {
	start, end int
	method     domain.Method
	path       string
	query      []string
	// host is scheme and host when the match named a full URL.
	host string
}

var (
	staticAsset  = regexp.MustCompile(`(?i)\.(html?|css|js|png|jpe?g|gif|svg|ico|pdf)$`)
	staticPrefix = regexp.MustCompile(`(?i)^/(static|assets|public)/`)
	versionSeg   = regexp.MustCompile(`(?i)^v\d+(\.\d+)*$`)
)

// findMatches runs every layer over text and returns the accepted matches
// in text order, one per identity key.
func findMatches(text string) []match {
	claimed := make(map[int]bool)
	var out []match
	for _, re := range layers {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			claim := m[4]
			if m[2] >= 0 {
				claim = m[2]
			}
			if claimed[claim] || claimed[m[4]] {
				continue
			}
			method := domain.MethodGet
			if m[2] >= 0 {
				method, _ = domain.ParseMethod(text[m[2]:m[3]])
			}
			path, query, host, ok := cleanPath(text[m[4]:m[5]])
			if !ok {
				continue
			}
			claimed[claim] = true
			claimed[m[4]] = true
			out = append(out, match{start: m[0], end: m[1], method: method, path: path, query: query, host: host})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })

	seen := make(map[domain.EndpointKey]bool, len(out))
	uniq := out[:0]
	for _, m := range out {
		k := domain.EndpointKey{Method: m.method, Path: m.path}
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, m)
	}
	return uniq
}

// cleanPath trims a captured path, splits off host and query string, and
// applies the API path filter.
func cleanPath(raw string) (path string, query []string, host string, ok bool) {
	p := trimTrailing(strings.Trim(raw, "`\"'<>"))
	if i := strings.Index(p, "://"); i >= 0 {
		rest := p[i+3:]
		j := strings.Index(rest, "/")
		if j < 0 {
			return "", nil, "", false
		}
		host = p[:i+3+j]
		p = rest[j:]
	}
	if i := strings.Index(p, "#"); i >= 0 {
		p = p[:i]
	}
	if base, q, found := strings.Cut(p, "?"); found {
		p = base
		for _, kv := range strings.Split(q, "&") {
			k, _, _ := strings.Cut(kv, "=")
			if k = strings.TrimSpace(k); isName(k) {
				query = append(query, k)
			}
		}
	}
	if !validPath(p) {
		return "", nil, "", false
	}
	return p, query, host, true
}

// trimTrailing drops sentence punctuation after a path. A closing brace
// stays when it closes a placeholder.
func trimTrailing(p string) string {
	for p != "" {
		last := p[len(p)-1]
		switch {
		case strings.IndexByte(".,;:!)]*`\"'>", last) >= 0:
		case last == '}' && strings.Count(p, "{") < strings.Count(p, "}"):
		default:
			return p
		}
		p = p[:len(p)-1]
	}
	return p
}

func validPath(p string) bool {
	if !strings.HasPrefix(p, "/") || len(p) < 2 || len(p) > 200 {
		return false
	}
	if staticAsset.MatchString(p) || staticPrefix.MatchString(p) {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		s := strings.ToLower(seg)
		if s == "api" || s == "rest" || versionSeg.MatchString(s) {
			return true
		}
	}
	return false
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '-' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
