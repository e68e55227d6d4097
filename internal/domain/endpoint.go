package domain

import (
	"sort"
	"strings"
)

// Method is an HTTP method supported by the canonical model.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

// Methods lists the supported methods in their canonical visiting order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

// ParseMethod maps a method label onto Method. Anything outside the five
// supported verbs reports false.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	case "PUT":
		return MethodPut, true
	case "DELETE":
		return MethodDelete, true
	case "PATCH":
		return MethodPatch, true
	}
	return "", false
}

// HasBody reports whether requests with this method carry a body.
func (m Method) HasBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// FallbackSource is the source assigned to a parameter when nothing else
// says where it travels.
func (m Method) FallbackSource() ParamSource {
	if m == MethodGet || m == MethodDelete {
		return SourceQuery
	}
	return SourceBody
}

// ParamType is the normalized type of a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeFloat   ParamType = "float"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeFile    ParamType = "file"
	TypeUnknown ParamType = "unknown"
)

var typeAliases = map[string]ParamType{
	"string": TypeString, "str": TypeString, "text": TypeString, "uuid": TypeString,
	"date": TypeString, "datetime": TypeString, "date-time": TypeString, "email": TypeString,
	"char": TypeString, "varchar": TypeString, "guid": TypeString, "password": TypeString,
	"integer": TypeInteger, "int": TypeInteger, "int8": TypeInteger, "int16": TypeInteger,
	"int32": TypeInteger, "int64": TypeInteger, "uint": TypeInteger, "uint8": TypeInteger,
	"uint16": TypeInteger, "uint32": TypeInteger, "uint64": TypeInteger, "long": TypeInteger,
	"short": TypeInteger, "i32": TypeInteger, "i64": TypeInteger, "u32": TypeInteger,
	"u64": TypeInteger, "usize": TypeInteger, "bigint": TypeInteger,
	"float": TypeFloat, "float32": TypeFloat, "float64": TypeFloat, "double": TypeFloat,
	"number": TypeFloat, "decimal": TypeFloat, "f32": TypeFloat, "f64": TypeFloat,
	"boolean": TypeBoolean, "bool": TypeBoolean,
	"array": TypeArray, "list": TypeArray, "slice": TypeArray, "set": TypeArray,
	"tuple": TypeArray, "vec": TypeArray,
	"object": TypeObject, "dict": TypeObject, "map": TypeObject, "hash": TypeObject,
	"json": TypeObject, "struct": TypeObject, "record": TypeObject,
	"file": TypeFile, "binary": TypeFile, "uploadfile": TypeFile, "multipartfile": TypeFile,
	"iformfile": TypeFile, "blob": TypeFile, "fileheader": TypeFile,
}

// NormalizeParamType maps a loose type label from any input format onto
// ParamType. Generic wrappers such as List[int] or Optional[str] collapse to
// their outer or inner type.
func NormalizeParamType(label string) ParamType {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return TypeUnknown
	}
	if strings.HasPrefix(l, "[]") {
		return TypeArray
	}
	l = strings.TrimLeft(l, "*&")
	if i := strings.LastIndex(l, "."); i >= 0 && i < len(l)-1 {
		l = l[i+1:]
	}
	if t, ok := typeAliases[l]; ok {
		return t
	}
	if open := strings.IndexAny(l, "[<("); open > 0 {
		outer := l[:open]
		inner := strings.TrimRight(l[open+1:], "]>)")
		switch outer {
		case "optional", "option", "nullable":
			return NormalizeParamType(inner)
		case "list", "array", "vec", "set", "sequence", "iterable", "ienumerable":
			return TypeArray
		case "dict", "map", "hashmap", "record", "mapping":
			return TypeObject
		}
		if t, ok := typeAliases[outer]; ok {
			return t
		}
	}
	return TypeUnknown
}

// NormalizeParamTypeOr is NormalizeParamType with fallback for empty and
// unrecognized labels.
func NormalizeParamTypeOr(label string, fallback ParamType) ParamType {
	if t := NormalizeParamType(label); t != TypeUnknown {
		return t
	}
	return fallback
}

// ParamSource is where a parameter travels in the HTTP request.
type ParamSource string

const (
	SourcePath    ParamSource = "path"
	SourceQuery   ParamSource = "query"
	SourceBody    ParamSource = "body"
	SourceHeader  ParamSource = "header"
	SourceCookie  ParamSource = "cookie"
	SourceForm    ParamSource = "form"
	SourceUnknown ParamSource = "unknown"
)

var sourceAliases = map[string]ParamSource{
	"path": SourcePath, "route": SourcePath, "uri": SourcePath, "url": SourcePath,
	"params": SourcePath, "pathvariable": SourcePath,
	"query": SourceQuery, "querystring": SourceQuery, "search": SourceQuery, "args": SourceQuery,
	"header": SourceHeader, "headers": SourceHeader,
	"cookie": SourceCookie, "cookies": SourceCookie,
	"body": SourceBody, "formdata": SourceBody, "json": SourceBody, "payload": SourceBody,
	"requestbody": SourceBody, "data": SourceBody,
	"form": SourceForm, "urlencoded": SourceForm, "multipart": SourceForm, "files": SourceForm,
}

// ParseParamSource is the shared parameter location table. Unrecognized
// locations map to SourceUnknown.
func ParseParamSource(location string) ParamSource {
	l := strings.ToLower(strings.TrimSpace(location))
	l = strings.NewReplacer("_", "", "-", "").Replace(l)
	if s, ok := sourceAliases[l]; ok {
		return s
	}
	return SourceUnknown
}

// Parameter is one input of an endpoint.
type Parameter struct {
	Name        string      `json:"name" yaml:"name"`
	Type        ParamType   `json:"type" yaml:"type"`
	Source      ParamSource `json:"source" yaml:"source"`
	Required    bool        `json:"required" yaml:"required"`
	Default     any         `json:"default,omitempty" yaml:"default,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// Parameters is an ordered parameter set with unique names.
type Parameters []Parameter

// Add appends p unless a parameter with the same name is already present.
// It reports whether p was added.
func (ps *Parameters) Add(p Parameter) bool {
	if p.Name == "" || ps.Has(p.Name) {
		return false
	}
	*ps = append(*ps, p)
	return true
}

// Has reports whether a parameter with the given name exists.
func (ps Parameters) Has(name string) bool {
	return ps.Index(name) >= 0
}

// Index returns the position of the named parameter or -1.
func (ps Parameters) Index(name string) int {
	for i := range ps {
		if ps[i].Name == name {
			return i
		}
	}
	return -1
}

// Get returns the named parameter.
func (ps Parameters) Get(name string) (Parameter, bool) {
	if i := ps.Index(name); i >= 0 {
		return ps[i], true
	}
	return Parameter{}, false
}

// Names returns parameter names in order.
func (ps Parameters) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// OfSource returns the parameters travelling in src, in order.
func (ps Parameters) OfSource(src ParamSource) Parameters {
	var out Parameters
	for _, p := range ps {
		if p.Source == src {
			out = append(out, p)
		}
	}
	return out
}

// EndpointKey is the identity of an endpoint: method plus the path exactly
// as written.
type EndpointKey struct {
	Method Method
	Path   string
}

func (k EndpointKey) String() string {
	return string(k.Method) + " " + k.Path
}

// Endpoint is the canonical, source-independent description of one HTTP
// route.
type Endpoint struct {
	Path              string         `json:"path" yaml:"path"`
	Method            Method         `json:"method" yaml:"method"`
	Description       string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters        Parameters     `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBodySchema map[string]any `json:"request_body_schema,omitempty" yaml:"request_body_schema,omitempty"`
	ResponseSchema    map[string]any `json:"response_schema,omitempty" yaml:"response_schema,omitempty"`
	AuthRequired      bool           `json:"auth_required" yaml:"auth_required"`
	Tags              []string       `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Provenance. Not part of identity.
	Origin    string `json:"origin,omitempty" yaml:"origin,omitempty"`
	Extractor string `json:"extractor,omitempty" yaml:"extractor,omitempty"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Key returns the endpoint's identity.
func (e Endpoint) Key() EndpointKey {
	return EndpointKey{Method: e.Method, Path: e.Path}
}

// Clone returns a copy that shares no slices with e. Schema maps are opaque
// and shared.
func (e Endpoint) Clone() Endpoint {
	c := e
	if e.Parameters != nil {
		c.Parameters = append(Parameters(nil), e.Parameters...)
	}
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	return c
}

// BackfillPlaceholders returns a clone of e in which every path placeholder
// has a path parameter. Declared parameters named after a placeholder are
// moved to the path source; missing ones are added as required strings, or
// typed from the placeholder qualifier when there is one.
func (e Endpoint) BackfillPlaceholders() Endpoint {
	c := e.Clone()
	for _, ph := range PathPlaceholders(c.Path) {
		if i := c.Parameters.Index(ph.Name); i >= 0 {
			c.Parameters[i].Source = SourcePath
			c.Parameters[i].Required = true
			continue
		}
		typ := ph.Type()
		if typ == TypeUnknown {
			typ = TypeString
		}
		c.Parameters = append(c.Parameters, Parameter{
			Name:     ph.Name,
			Type:     typ,
			Source:   SourcePath,
			Required: true,
		})
	}
	return c
}

// AddTag appends tag when it is non-empty and not present yet.
func (e *Endpoint) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	for _, t := range e.Tags {
		if t == tag {
			return
		}
	}
	e.Tags = append(e.Tags, tag)
}

// SortEndpoints orders endpoints by path, then by canonical method order.
func SortEndpoints(eps []Endpoint) {
	rank := func(m Method) int {
		for i, mm := range Methods {
			if mm == m {
				return i
			}
		}
		return len(Methods)
	}
	sort.SliceStable(eps, func(i, j int) bool {
		if eps[i].Path != eps[j].Path {
			return eps[i].Path < eps[j].Path
		}
		return rank(eps[i].Method) < rank(eps[j].Method)
	})
}
