package specformat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"

	"github.com/i2y/apiforge/internal/domain"
)

func parseSwagger2(tree any) (Document, error) {
	// YAML input is re-encoded so kin's JSON unmarshalers see one shape.
	b, err := json.Marshal(tree)
	if err != nil {
		return Document{}, fmt.Errorf("failed to re-encode Swagger document: %w", err)
	}
	var spec openapi2.T
	if err := json.Unmarshal(b, &spec); err != nil {
		return Document{}, fmt.Errorf("failed to decode Swagger document: %w", err)
	}

	doc := Document{BaseURL: swaggerBaseURL(&spec), Auth: swaggerAuth(spec.SecurityDefinitions)}
	for _, name := range sortedKeys(spec.Definitions) {
		if ref := spec.Definitions[name]; ref != nil && ref.Value != nil {
			if doc.Schemas == nil {
				doc.Schemas = make(map[string]any)
			}
			doc.Schemas[name] = toBlob(ref.Value)
		}
	}

	for _, path := range sortedKeys(spec.Paths) {
		item := spec.Paths[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range domain.Methods {
			op := ops[string(method)]
			if op == nil {
				continue
			}
			doc.Endpoints = append(doc.Endpoints, swaggerEndpoint(&spec, path, method, item, op))
		}
	}
	return doc, nil
}

func swaggerEndpoint(spec *openapi2.T, path string, method domain.Method, item *openapi2.PathItem, op *openapi2.Operation) domain.Endpoint {
	ep := domain.Endpoint{
		Path:        path,
		Method:      method,
		Description: op.Description,
		Tags:        append([]string(nil), op.Tags...),
	}
	if ep.Description == "" {
		ep.Description = op.Summary
	}

	placeholders := placeholderSet(path)
	var merged []*openapi2.Parameter
	index := make(map[string]int)
	for _, list := range []openapi2.Parameters{item.Parameters, op.Parameters} {
		for _, p := range list {
			p = resolveSwaggerParam(spec, p)
			if p == nil {
				continue
			}
			key := p.In + "\x00" + p.Name
			if i, ok := index[key]; ok {
				merged[i] = p
				continue
			}
			index[key] = len(merged)
			merged = append(merged, p)
		}
	}

	for _, p := range merged {
		param := domain.Parameter{
			Name:        p.Name,
			Source:      domain.ParseParamSource(p.In),
			Required:    p.Required,
			Default:     p.Default,
			Description: p.Description,
		}
		switch {
		case p.In == "body":
			param.Type = domain.TypeObject
			if p.Schema != nil && p.Schema.Value != nil {
				ep.RequestBodySchema = toBlob(p.Schema.Value)
				if p.Schema.Value.Type != nil && len(p.Schema.Value.Type.Slice()) > 0 {
					param.Type = domain.NormalizeParamType(p.Schema.Value.Type.Slice()[0])
				}
			}
		case p.Type != nil && len(p.Type.Slice()) > 0:
			param.Type = domain.NormalizeParamType(p.Type.Slice()[0])
		default:
			param.Type = domain.TypeString
		}
		addDeclared(&ep, placeholders, param)
	}

	for _, code := range sortedKeys(op.Responses) {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		if r := op.Responses[code]; r != nil && r.Schema != nil && r.Schema.Value != nil {
			ep.ResponseSchema = toBlob(r.Schema.Value)
		}
		break
	}

	security := spec.Security
	if op.Security != nil {
		security = *op.Security
	}
	for _, req := range security {
		if len(req) > 0 {
			ep.AuthRequired = true
			break
		}
	}
	return ep.BackfillPlaceholders()
}

// resolveSwaggerParam follows a local #/parameters/ reference.
func resolveSwaggerParam(spec *openapi2.T, p *openapi2.Parameter) *openapi2.Parameter {
	if p == nil || p.Ref == "" {
		return p
	}
	name := strings.TrimPrefix(p.Ref, "#/parameters/")
	if name == p.Ref {
		return nil
	}
	return spec.Parameters[name]
}

func swaggerBaseURL(spec *openapi2.T) string {
	if spec.Host == "" {
		return ""
	}
	scheme := "https"
	if len(spec.Schemes) > 0 {
		scheme = spec.Schemes[0]
	}
	return strings.TrimSuffix(scheme+"://"+spec.Host+spec.BasePath, "/")
}

func swaggerAuth(defs map[string]*openapi2.SecurityScheme) *domain.AuthInfo {
	for _, name := range sortedKeys(defs) {
		s := defs[name]
		if s == nil {
			continue
		}
		params := map[string]string{"scheme_name": name}
		var t domain.AuthType
		switch strings.ToLower(s.Type) {
		case "apikey":
			t = domain.AuthAPIKey
			params["name"] = s.Name
			params["in"] = s.In
		case "basic":
			t = domain.AuthBasic
		case "oauth2":
			t = domain.AuthOAuth
			if s.Flow != "" {
				params["flow"] = s.Flow
			}
		default:
			continue
		}
		return newAuth(t, params)
	}
	return nil
}
