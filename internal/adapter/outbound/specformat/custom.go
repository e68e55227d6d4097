package specformat

import (
	"errors"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

var (
	methodKeys = []string{"method", "httpMethod", "http_method", "verb"}
	pathKeys   = []string{"path", "url", "route", "endpoint", "uri"}
)

func parseCustom(tree any) (Document, error) {
	var (
		doc   Document
		items []any
	)
	switch t := tree.(type) {
	case []any:
		items = t
	case map[string]any:
		v, _ := first(t, "endpoints", "apis", "routes")
		list, ok := asList(v)
		if !ok {
			return Document{}, errors.New("endpoint list must be an array")
		}
		items = list
		if base := str(t, "baseUrl", "baseURL", "base_url", "host"); strings.HasPrefix(base, "http") {
			doc.BaseURL = strings.TrimSuffix(base, "/")
		}
		if a, ok := first(t, "auth", "authentication"); ok {
			doc.Auth, _ = customAuth(a)
		}
		if schemas, ok := asMap(t["schemas"]); ok && len(schemas) > 0 {
			doc.Schemas = schemas
		}
	}

	for _, raw := range items {
		item, ok := asMap(raw)
		if !ok {
			continue
		}
		ep, ok := customEndpoint(item, "")
		if !ok {
			continue
		}
		if a, ok := first(item, "auth", "authentication", "authRequired", "auth_required"); ok {
			info, required := customAuth(a)
			ep.AuthRequired = required
			if doc.Auth == nil {
				doc.Auth = info
			}
		}
		doc.Endpoints = append(doc.Endpoints, ep.BackfillPlaceholders())
	}
	return doc, nil
}

// customEndpoint reads one endpoint object. pathOverride, when set, is used
// instead of the object's own path key.
func customEndpoint(item map[string]any, pathOverride string) (domain.Endpoint, bool) {
	method := domain.MethodGet
	if m := str(item, methodKeys...); m != "" {
		parsed, ok := domain.ParseMethod(m)
		if !ok {
			return domain.Endpoint{}, false
		}
		method = parsed
	}
	path := pathOverride
	if path == "" {
		path = str(item, pathKeys...)
	}
	if path == "" {
		return domain.Endpoint{}, false
	}
	path = ensurePath(path)

	ep := domain.Endpoint{
		Path:        path,
		Method:      method,
		Description: str(item, "description", "summary", "desc", "name"),
	}
	if v, ok := first(item, "tags", "tag", "category"); ok {
		for _, t := range stringList(v) {
			ep.AddTag(t)
		}
	}

	placeholders := placeholderSet(path)
	if v, ok := first(item, "parameters", "params", "args", "fields"); ok {
		for _, p := range customParams(v) {
			addDeclared(&ep, placeholders, p)
		}
	}
	return ep, true
}

// customParams accepts an object keyed by name, a list of objects, or a list
// of bare names.
func customParams(v any) []domain.Parameter {
	var out []domain.Parameter
	switch t := v.(type) {
	case map[string]any:
		for _, name := range sortedKeys(t) {
			out = append(out, customParam(name, t[name]))
		}
	case []any:
		for _, entry := range t {
			switch e := entry.(type) {
			case string:
				out = append(out, customParam(e, nil))
			case map[string]any:
				out = append(out, customParam(str(e, "name", "key", "field"), e))
			}
		}
	}
	return out
}

func customParam(name string, spec any) domain.Parameter {
	p := domain.Parameter{Name: strings.TrimSpace(name), Type: domain.TypeString, Source: domain.SourceQuery}
	switch s := spec.(type) {
	case string:
		p.Type = domain.NormalizeParamTypeOr(s, domain.TypeString)
	case map[string]any:
		label := str(s, "type", "dataType", "data_type")
		if label == "" {
			if schema, ok := asMap(s["schema"]); ok {
				label = str(schema, "type")
			}
		}
		p.Type = domain.NormalizeParamTypeOr(label, domain.TypeString)
		if loc := str(s, "in", "source", "location"); loc != "" {
			if src := domain.ParseParamSource(loc); src != domain.SourceUnknown {
				p.Source = src
			}
		}
		p.Required = boolean(s["required"])
		p.Description = str(s, "description", "desc")
		if d, ok := s["default"]; ok {
			p.Default = d
		}
	}
	return p
}

// customAuth reads an auth declaration that may be a flag, a type name or
// an object, and reports whether it makes authentication required.
func customAuth(v any) (*domain.AuthInfo, bool) {
	switch t := v.(type) {
	case bool:
		return nil, t
	case string:
		at := domain.ParseAuthType(t)
		return newAuth(at, nil), at != domain.AuthNone
	case map[string]any:
		at := domain.ParseAuthType(str(t, "type", "scheme"))
		params := make(map[string]string)
		for _, k := range sortedKeys(t) {
			if k == "type" {
				continue
			}
			if s := str(t, k); s != "" {
				params[k] = s
			}
		}
		if params["name"] == "" && params["header"] != "" {
			params["name"] = params["header"]
		}
		required := at != domain.AuthNone
		if r, ok := t["required"]; ok {
			required = boolean(r)
		}
		return newAuth(at, params), required
	}
	return nil, false
}
