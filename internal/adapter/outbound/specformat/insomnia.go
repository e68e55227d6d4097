package specformat

import (
	"errors"
	"regexp"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

var insomniaVar = regexp.MustCompile(`\{\{\s*(?:_\.)?([^{}\s]+)\s*\}\}`)

func parseInsomnia(tree any) (Document, error) {
	root, ok := asMap(tree)
	if !ok {
		return Document{}, errors.New("insomnia export must be an object")
	}
	resources, _ := asList(root["resources"])

	groups := make(map[string]map[string]any)
	var requests []map[string]any
	var doc Document
	for _, r := range resources {
		rm, ok := asMap(r)
		if !ok {
			continue
		}
		switch str(rm, "_type") {
		case "request_group":
			groups[str(rm, "_id")] = rm
		case "request":
			requests = append(requests, rm)
		case "environment":
			if data, ok := asMap(rm["data"]); ok && doc.BaseURL == "" {
				if base := str(data, "base_url", "baseUrl", "baseURL", "host"); strings.HasPrefix(base, "http") {
					doc.BaseURL = strings.TrimSuffix(base, "/")
				}
			}
		}
	}

	for _, req := range requests {
		ep, ok := insomniaRequest(req, groups)
		if !ok {
			continue
		}
		if auth, ok := asMap(req["authentication"]); ok && !boolean(auth["disabled"]) {
			if a := postmanAuth(auth); a != nil {
				ep.AuthRequired = true
				if doc.Auth == nil {
					doc.Auth = a
				}
			}
		}
		doc.Endpoints = append(doc.Endpoints, ep.BackfillPlaceholders())
	}
	return doc, nil
}

func insomniaRequest(req map[string]any, groups map[string]map[string]any) (domain.Endpoint, bool) {
	method := domain.MethodGet
	if m := str(req, "method"); m != "" {
		parsed, ok := domain.ParseMethod(m)
		if !ok {
			return domain.Endpoint{}, false
		}
		method = parsed
	}
	url := str(req, "url")
	if url == "" {
		return domain.Endpoint{}, false
	}
	path := insomniaVar.ReplaceAllString(rawURLPath(url), "{$1}")

	ep := domain.Endpoint{Path: path, Method: method, Description: str(req, "description")}
	if ep.Description == "" {
		ep.Description = str(req, "name")
	}
	for _, tag := range insomniaAncestors(str(req, "parentId"), groups) {
		ep.AddTag(tag)
	}

	placeholders := placeholderSet(path)
	params, _ := asList(req["parameters"])
	for _, p := range params {
		pm, ok := asMap(p)
		if !ok {
			continue
		}
		addDeclared(&ep, placeholders, domain.Parameter{
			Name:        str(pm, "name"),
			Type:        domain.TypeString,
			Source:      domain.SourceQuery,
			Required:    !boolean(pm["disabled"]),
			Description: str(pm, "description"),
		})
	}
	headers, _ := asList(req["headers"])
	for _, h := range headers {
		hm, ok := asMap(h)
		if !ok {
			continue
		}
		name := str(hm, "name")
		if strings.EqualFold(name, "Content-Type") || strings.EqualFold(name, "Accept") {
			continue
		}
		addDeclared(&ep, placeholders, domain.Parameter{
			Name:     name,
			Type:     domain.TypeString,
			Source:   domain.SourceHeader,
			Required: !boolean(hm["disabled"]),
		})
	}

	if body, ok := asMap(req["body"]); ok {
		mime := strings.ToLower(str(body, "mimeType"))
		switch {
		case strings.Contains(mime, "json"):
			for _, f := range jsonFields(insomniaVar.ReplaceAllString(str(body, "text"), "{{$1}}")) {
				addDeclared(&ep, placeholders, domain.Parameter{Name: f.name, Type: f.typ, Source: domain.SourceBody})
			}
		case strings.Contains(mime, "form"):
			list, _ := asList(body["params"])
			for _, entry := range list {
				em, ok := asMap(entry)
				if !ok {
					continue
				}
				typ := domain.TypeString
				if str(em, "type") == "file" {
					typ = domain.TypeFile
				}
				addDeclared(&ep, placeholders, domain.Parameter{
					Name:     str(em, "name"),
					Type:     typ,
					Source:   domain.SourceForm,
					Required: !boolean(em["disabled"]),
				})
			}
		}
	}
	return ep, true
}

// insomniaAncestors lists the request_group names above parentID, outermost
// first.
func insomniaAncestors(parentID string, groups map[string]map[string]any) []string {
	var names []string
	seen := make(map[string]bool)
	for id := parentID; id != "" && !seen[id]; {
		seen[id] = true
		g, ok := groups[id]
		if !ok {
			break
		}
		names = append([]string{str(g, "name")}, names...)
		id = str(g, "parentId")
	}
	return names
}
