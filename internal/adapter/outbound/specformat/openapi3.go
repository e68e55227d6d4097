package specformat

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/apiforge/internal/domain"
)

type operationSlot struct {
	method domain.Method
	get    func(*openapi3.PathItem) *openapi3.Operation
}

var openapi3Operations = []operationSlot{
	{domain.MethodGet, func(p *openapi3.PathItem) *openapi3.Operation { return p.Get }},
	{domain.MethodPost, func(p *openapi3.PathItem) *openapi3.Operation { return p.Post }},
	{domain.MethodPut, func(p *openapi3.PathItem) *openapi3.Operation { return p.Put }},
	{domain.MethodDelete, func(p *openapi3.PathItem) *openapi3.Operation { return p.Delete }},
	{domain.MethodPatch, func(p *openapi3.PathItem) *openapi3.Operation { return p.Patch }},
}

func parseOpenAPI3(log *slog.Logger, origin string, raw []byte) (Document, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return Document{}, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	doc := Document{BaseURL: baseURLFromServers(log, origin, spec.Servers)}
	if spec.Components != nil {
		for _, name := range sortedKeys(spec.Components.Schemas) {
			if ref := spec.Components.Schemas[name]; ref != nil && ref.Value != nil {
				if doc.Schemas == nil {
					doc.Schemas = make(map[string]any)
				}
				doc.Schemas[name] = toBlob(ref.Value)
			}
		}
		doc.Auth = openapi3Auth(spec.Components.SecuritySchemes)
	}

	if spec.Paths == nil {
		return doc, nil
	}
	paths := spec.Paths.Map()
	for _, path := range sortedKeys(paths) {
		item := paths[path]
		if item == nil {
			continue
		}
		for _, slot := range openapi3Operations {
			op := slot.get(item)
			if op == nil {
				continue
			}
			doc.Endpoints = append(doc.Endpoints, openapi3Endpoint(spec, path, slot.method, item, op))
		}
	}
	log.Debug("Converted OpenAPI 3 document.", slog.Int("endpoint_count", len(doc.Endpoints)))
	return doc, nil
}

func openapi3Endpoint(spec *openapi3.T, path string, method domain.Method, item *openapi3.PathItem, op *openapi3.Operation) domain.Endpoint {
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
	for _, p := range effectiveParameters(item.Parameters, op.Parameters) {
		param := domain.Parameter{
			Name:        p.Name,
			Type:        schemaType(p.Schema),
			Source:      domain.ParseParamSource(p.In),
			Required:    p.Required,
			Description: p.Description,
		}
		if p.Schema != nil && p.Schema.Value != nil {
			param.Default = p.Schema.Value.Default
		}
		addDeclared(&ep, placeholders, param)
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		addRequestBody(&ep, placeholders, op.RequestBody.Value)
	}
	ep.ResponseSchema = successResponse(op.Responses)

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

// effectiveParameters merges path-item parameters with operation parameters;
// an operation parameter replaces the path-item one with the same name and
// location.
func effectiveParameters(shared, own openapi3.Parameters) []*openapi3.Parameter {
	var out []*openapi3.Parameter
	index := make(map[string]int)
	for _, list := range []openapi3.Parameters{shared, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			key := ref.Value.In + "\x00" + ref.Value.Name
			if i, ok := index[key]; ok {
				out[i] = ref.Value
				continue
			}
			index[key] = len(out)
			out = append(out, ref.Value)
		}
	}
	return out
}

func addRequestBody(ep *domain.Endpoint, placeholders map[string]bool, body *openapi3.RequestBody) {
	if media := jsonMedia(body.Content); media != nil && media.Schema != nil && media.Schema.Value != nil {
		schema := media.Schema.Value
		ep.RequestBodySchema = toBlob(schema)
		if len(schema.Properties) == 0 {
			addDeclared(ep, placeholders, domain.Parameter{
				Name:     "requestBody",
				Type:     schemaType(media.Schema),
				Source:   domain.SourceBody,
				Required: body.Required,
			})
			return
		}
		addProperties(ep, placeholders, schema, domain.SourceBody)
		return
	}
	for _, ct := range []string{"application/x-www-form-urlencoded", "multipart/form-data"} {
		media := body.Content.Get(ct)
		if media == nil || media.Schema == nil || media.Schema.Value == nil {
			continue
		}
		ep.RequestBodySchema = toBlob(media.Schema.Value)
		addProperties(ep, placeholders, media.Schema.Value, domain.SourceForm)
		return
	}
}

func addProperties(ep *domain.Endpoint, placeholders map[string]bool, schema *openapi3.Schema, src domain.ParamSource) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	for _, name := range sortedKeys(schema.Properties) {
		prop := schema.Properties[name]
		p := domain.Parameter{Name: name, Type: schemaType(prop), Source: src, Required: required[name]}
		if prop != nil && prop.Value != nil {
			p.Description = prop.Value.Description
			p.Default = prop.Value.Default
		}
		addDeclared(ep, placeholders, p)
	}
}

// jsonMedia prefers application/json and falls back to any JSON flavoured
// media type.
func jsonMedia(content openapi3.Content) *openapi3.MediaType {
	if content == nil {
		return nil
	}
	if m := content.Get("application/json"); m != nil {
		return m
	}
	for _, ct := range sortedKeys(content) {
		if strings.Contains(ct, "json") {
			return content[ct]
		}
	}
	return nil
}

// successResponse returns the JSON schema of the first 2xx response, else of
// the default response.
func successResponse(responses *openapi3.Responses) map[string]any {
	if responses == nil {
		return nil
	}
	all := responses.Map()
	codes := sortedKeys(all)
	pick := ""
	for _, code := range codes {
		if strings.HasPrefix(code, "2") {
			pick = code
			break
		}
	}
	if pick == "" {
		if _, ok := all["default"]; !ok {
			return nil
		}
		pick = "default"
	}
	ref := all[pick]
	if ref == nil || ref.Value == nil {
		return nil
	}
	media := jsonMedia(ref.Value.Content)
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	return toBlob(media.Schema.Value)
}

func schemaType(ref *openapi3.SchemaRef) domain.ParamType {
	if ref == nil || ref.Value == nil {
		return domain.TypeString
	}
	s := ref.Value
	if s.Type != nil {
		for _, t := range s.Type.Slice() {
			if t == "null" {
				continue
			}
			if t == openapi3.TypeString && s.Format == "binary" {
				return domain.TypeFile
			}
			return domain.NormalizeParamType(t)
		}
	}
	switch {
	case len(s.Properties) > 0:
		return domain.TypeObject
	case s.Items != nil:
		return domain.TypeArray
	}
	return domain.TypeString
}

func openapi3Auth(schemes openapi3.SecuritySchemes) *domain.AuthInfo {
	for _, name := range sortedKeys(schemes) {
		ref := schemes[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		s := ref.Value
		params := map[string]string{"scheme_name": name}
		var t domain.AuthType
		switch strings.ToLower(s.Type) {
		case "apikey":
			t = domain.AuthAPIKey
			params["name"] = s.Name
			params["in"] = s.In
		case "http":
			t = domain.AuthBearer
			if strings.EqualFold(s.Scheme, "basic") {
				t = domain.AuthBasic
			}
			if s.BearerFormat != "" {
				params["bearer_format"] = s.BearerFormat
			}
		case "oauth2", "openidconnect":
			t = domain.AuthOAuth
		default:
			continue
		}
		return newAuth(t, params)
	}
	return nil
}

// baseURLFromServers returns the first http(s) server URL, resolving a
// relative server URL against the document's own location.
func baseURLFromServers(log *slog.Logger, origin string, servers openapi3.Servers) string {
	if len(servers) == 0 {
		return ""
	}

	base, err := url.Parse(origin)
	if err != nil || origin == "" {
		base = nil
	}

	for _, server := range servers {
		if server == nil || server.URL == "" {
			continue
		}
		parsed, err := url.Parse(server.URL)
		if err != nil {
			log.Warn("Could not parse server URL, skipping.", slog.String("url", server.URL), slog.Any("error", err))
			continue
		}
		resolved := parsed
		if !parsed.IsAbs() {
			if base == nil {
				continue
			}
			resolved = base.ResolveReference(parsed)
		}
		if (resolved.Scheme == "http" || resolved.Scheme == "https") && resolved.Host != "" {
			return strings.TrimSuffix(fmt.Sprintf("%s://%s%s", resolved.Scheme, resolved.Host, resolved.Path), "/")
		}
		if parsed.IsAbs() {
			log.Debug("Skipping non-HTTP server URL.", slog.String("url", server.URL))
		}
	}
	return ""
}
