package specformat

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

var (
	templateVar     = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	quotedTemplate  = regexp.MustCompile(`"?\{\{\s*([^{}"]+?)\s*\}\}"?`)
	leadingTemplate = regexp.MustCompile(`^\{\{[^{}]*\}\}`)
)

// field is a named value found in a JSON example body.
type field struct {
	name string
	typ  domain.ParamType
}

func parsePostman(tree any) (Document, error) {
	root, ok := asMap(tree)
	if !ok {
		return Document{}, errors.New("postman collection must be an object")
	}
	items, _ := asList(root["item"])

	doc := Document{BaseURL: postmanBaseURL(root["variable"])}
	collectionAuth := postmanAuth(root["auth"])
	doc.Auth = collectionAuth
	walkPostman(&doc, items, nil, collectionAuth)
	return doc, nil
}

func walkPostman(doc *Document, items []any, folders []string, inherited *domain.AuthInfo) {
	for _, raw := range items {
		item, ok := asMap(raw)
		if !ok {
			continue
		}
		auth := inherited
		if a, ok := explicitAuth(item["auth"]); ok {
			auth = a
		}
		if children, ok := asList(item["item"]); ok {
			walkPostman(doc, children, append(append([]string(nil), folders...), str(item, "name")), auth)
			continue
		}
		req, ok := item["request"]
		if !ok {
			continue
		}
		ep, ok := postmanRequest(item, req, folders)
		if !ok {
			continue
		}
		if rm, isObj := asMap(req); isObj {
			if a, ok := explicitAuth(rm["auth"]); ok {
				auth = a
			}
		}
		if auth != nil {
			ep.AuthRequired = true
			if doc.Auth == nil {
				doc.Auth = auth
			}
		}
		doc.Endpoints = append(doc.Endpoints, ep.BackfillPlaceholders())
	}
}

// explicitAuth reports the auth block v declares; ok is false when v is
// absent or defers to the parent.
func explicitAuth(v any) (*domain.AuthInfo, bool) {
	m, ok := asMap(v)
	if !ok || strings.EqualFold(str(m, "type"), "inherit") {
		return nil, false
	}
	return postmanAuth(m), true
}

func postmanRequest(item map[string]any, raw any, folders []string) (domain.Endpoint, bool) {
	req, isObj := asMap(raw)
	if !isObj {
		// A bare string request is a GET of that URL.
		s, _ := raw.(string)
		req = map[string]any{"url": s}
	}

	method := domain.MethodGet
	if m := str(req, "method"); m != "" {
		parsed, ok := domain.ParseMethod(m)
		if !ok {
			return domain.Endpoint{}, false
		}
		method = parsed
	}

	path, query, vars := postmanURL(req["url"])
	ep := domain.Endpoint{Path: path, Method: method, Description: postmanDescription(req["description"])}
	if ep.Description == "" {
		ep.Description = str(item, "name")
	}
	for _, f := range folders {
		ep.AddTag(f)
	}

	placeholders := placeholderSet(path)
	for _, v := range vars {
		addDeclared(&ep, placeholders, v)
	}
	for _, q := range query {
		addDeclared(&ep, placeholders, q)
	}

	headers, _ := asList(req["header"])
	for _, h := range headers {
		hm, ok := asMap(h)
		if !ok {
			continue
		}
		name := str(hm, "key")
		if strings.EqualFold(name, "Content-Type") || strings.EqualFold(name, "Accept") {
			continue
		}
		addDeclared(&ep, placeholders, domain.Parameter{
			Name:        name,
			Type:        domain.TypeString,
			Source:      domain.SourceHeader,
			Required:    !boolean(hm["disabled"]),
			Description: postmanDescription(hm["description"]),
		})
	}

	if body, ok := asMap(req["body"]); ok {
		postmanBody(&ep, placeholders, body)
	}

	return ep, true
}

// postmanURL returns the path template plus the query and path variable
// declarations of a Postman URL, given as a string or a structured object.
func postmanURL(v any) (string, []domain.Parameter, []domain.Parameter) {
	var (
		path  string
		query []domain.Parameter
		vars  []domain.Parameter
	)
	switch u := v.(type) {
	case string:
		path = rawURLPath(u)
		if i := strings.Index(u, "?"); i >= 0 {
			for _, pair := range strings.Split(u[i+1:], "&") {
				if name, _, _ := strings.Cut(pair, "="); name != "" {
					query = append(query, domain.Parameter{Name: name, Type: domain.TypeString, Source: domain.SourceQuery})
				}
			}
		}
	case map[string]any:
		switch p := u["path"].(type) {
		case []any:
			segs := make([]string, 0, len(p))
			for _, s := range p {
				if seg, ok := s.(string); ok {
					segs = append(segs, seg)
				} else if sm, ok := asMap(s); ok {
					segs = append(segs, str(sm, "value"))
				}
			}
			path = "/" + strings.Join(segs, "/")
		case string:
			path = p
		default:
			path = rawURLPath(str(u, "raw"))
		}
		list, _ := asList(u["query"])
		for _, q := range list {
			qm, ok := asMap(q)
			if !ok {
				continue
			}
			p := domain.Parameter{
				Name:        str(qm, "key"),
				Type:        domain.TypeString,
				Source:      domain.SourceQuery,
				Required:    !boolean(qm["disabled"]),
				Description: postmanDescription(qm["description"]),
			}
			if val := str(qm, "value"); val != "" && !templateVar.MatchString(val) {
				p.Default = val
			}
			query = append(query, p)
		}
		list, _ = asList(u["variable"])
		for _, pv := range list {
			vm, ok := asMap(pv)
			if !ok {
				continue
			}
			vars = append(vars, domain.Parameter{
				Name:        str(vm, "key"),
				Type:        domain.NormalizeParamTypeOr(str(vm, "type"), domain.TypeString),
				Source:      domain.SourcePath,
				Required:    true,
				Description: postmanDescription(vm["description"]),
			})
		}
	}
	path = templateVar.ReplaceAllString(ensurePath(path), "{$1}")
	return path, query, vars
}

// rawURLPath strips the scheme, host and any {{baseUrl}}-style prefix.
func rawURLPath(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = leadingTemplate.ReplaceAllString(raw, "")
	if strings.Contains(raw, "://") {
		return ensurePath(raw)
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	segs := strings.Split(strings.TrimPrefix(raw, "/"), "/")
	if !strings.HasPrefix(raw, "/") && len(segs) > 1 && strings.Contains(segs[0], ".") {
		segs = segs[1:]
	}
	return "/" + strings.Join(segs, "/")
}

func postmanBody(ep *domain.Endpoint, placeholders map[string]bool, body map[string]any) {
	switch str(body, "mode") {
	case "raw":
		for _, f := range jsonFields(str(body, "raw")) {
			addDeclared(ep, placeholders, domain.Parameter{Name: f.name, Type: f.typ, Source: domain.SourceBody})
		}
	case "urlencoded", "formdata":
		list, _ := asList(body[str(body, "mode")])
		for _, entry := range list {
			em, ok := asMap(entry)
			if !ok {
				continue
			}
			typ := domain.TypeString
			if str(em, "type") == "file" {
				typ = domain.TypeFile
			}
			addDeclared(ep, placeholders, domain.Parameter{
				Name:        str(em, "key"),
				Type:        typ,
				Source:      domain.SourceForm,
				Required:    !boolean(em["disabled"]),
				Description: postmanDescription(em["description"]),
			})
		}
	}
}

// jsonFields lists the top-level keys of a JSON example object with types
// inferred from their sample values, sorted by name.
func jsonFields(text string) []field {
	text = quotedTemplate.ReplaceAllString(text, `"$1"`)
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &m); err != nil {
		return nil
	}
	out := make([]field, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, field{name: k, typ: sampleType(m[k])})
	}
	return out
}

func sampleType(v any) domain.ParamType {
	switch t := v.(type) {
	case bool:
		return domain.TypeBoolean
	case float64:
		if t == math.Trunc(t) {
			return domain.TypeInteger
		}
		return domain.TypeFloat
	case []any:
		return domain.TypeArray
	case map[string]any:
		return domain.TypeObject
	}
	return domain.TypeString
}

func postmanDescription(v any) string {
	switch d := v.(type) {
	case string:
		return strings.TrimSpace(d)
	case map[string]any:
		return str(d, "content")
	}
	return ""
}

// postmanAuth maps a Postman or Insomnia auth block. It returns nil for
// "noauth" and unknown types.
func postmanAuth(v any) *domain.AuthInfo {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	kind := strings.ToLower(str(m, "type"))
	params := map[string]string{}
	if list, ok := asList(m[kind]); ok {
		for _, entry := range list {
			if em, ok := asMap(entry); ok {
				switch k := str(em, "key"); k {
				case "key":
					params["name"] = str(em, "value")
				case "in":
					params["in"] = str(em, "value")
				}
			}
		}
	}
	if name := str(m, "key"); name != "" && kind == "apikey" {
		params["name"] = name
	}
	if addTo := strings.ToLower(str(m, "addTo")); addTo != "" {
		params["in"] = "header"
		if strings.Contains(addTo, "query") {
			params["in"] = "query"
		}
	}
	if prefix := str(m, "prefix"); prefix != "" {
		params["prefix"] = prefix
	}
	switch kind {
	case "bearer", "jwt":
		return newAuth(domain.AuthBearer, params)
	case "basic", "digest":
		return newAuth(domain.AuthBasic, params)
	case "apikey":
		return newAuth(domain.AuthAPIKey, params)
	case "oauth1", "oauth2":
		return newAuth(domain.AuthOAuth, params)
	}
	return nil
}

func postmanBaseURL(v any) string {
	list, _ := asList(v)
	for _, entry := range list {
		em, ok := asMap(entry)
		if !ok {
			continue
		}
		switch strings.ToLower(str(em, "key")) {
		case "baseurl", "base_url", "host", "url":
			if val := str(em, "value"); strings.HasPrefix(val, "http") {
				return strings.TrimSuffix(val, "/")
			}
		}
	}
	return ""
}
