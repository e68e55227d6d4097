package specformat

import (
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

// parseGeneric looks for endpoint-shaped objects anywhere in the tree.
func parseGeneric(tree any) Document {
	var doc Document
	walkGeneric(&doc, "", tree)
	for i := range doc.Endpoints {
		doc.Endpoints[i] = doc.Endpoints[i].BackfillPlaceholders()
	}
	return doc
}

// walkGeneric visits v with prefix, the object keys leading to it joined by
// "/". A key that already looks like a path replaces the prefix.
func walkGeneric(doc *Document, prefix string, v any) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			walkGeneric(doc, prefix, item)
		}
	case map[string]any:
		if isEndpointObject(t) {
			fallback := ""
			if str(t, pathKeys...) == "" {
				fallback = prefix
			}
			if ep, ok := customEndpoint(t, fallback); ok {
				doc.Endpoints = append(doc.Endpoints, ep)
			}
			return
		}
		if prefix != "" && isPathItem(t) {
			path := ensurePath(prefix)
			for _, m := range domain.Methods {
				op, ok := methodEntry(t, m)
				if !ok {
					continue
				}
				ep, ok := customEndpoint(op, path)
				if !ok {
					continue
				}
				ep.Method = m
				if _, secured := op["security"]; secured {
					ep.AuthRequired = true
				}
				doc.Endpoints = append(doc.Endpoints, ep)
			}
			return
		}
		for _, k := range sortedKeys(t) {
			walkGeneric(doc, joinKey(prefix, k), t[k])
		}
	}
}

func joinKey(prefix, key string) string {
	switch {
	case strings.HasPrefix(key, "/"):
		return key
	case prefix == "":
		return key
	}
	return prefix + "/" + key
}

// isEndpointObject reports whether m carries a valid method indicator.
func isEndpointObject(m map[string]any) bool {
	_, ok := domain.ParseMethod(str(m, methodKeys...))
	return ok
}

// isPathItem reports whether one of m's own keys is an HTTP method.
func isPathItem(m map[string]any) bool {
	for k := range m {
		if _, ok := domain.ParseMethod(k); ok {
			return true
		}
	}
	return false
}

// methodEntry finds the operation object for m under any key casing.
func methodEntry(item map[string]any, m domain.Method) (map[string]any, bool) {
	for k, v := range item {
		if parsed, ok := domain.ParseMethod(k); ok && parsed == m {
			op, isObj := asMap(v)
			if !isObj {
				op = map[string]any{}
			}
			return op, true
		}
	}
	return nil, false
}
